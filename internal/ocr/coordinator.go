package ocr

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Lllllllleong/duediligenceflow/internal/pdf"
	"github.com/Lllllllleong/duediligenceflow/internal/retry"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchPause is the wait between consecutive batches of chunks.
const DefaultBatchPause = 2 * time.Second

// ChunkProcessor is satisfied by *Executor.
type ChunkProcessor interface {
	ProcessChunk(ctx context.Context, chunk pdf.Chunk) Result
}

// BatchResult aggregates every chunk of one document set, ordered by chunk index.
type BatchResult struct {
	Results        []Result
	CombinedText   string
	SuccessCount   int
	ErrorCount     int
	TotalChunks    int
	ProcessingTime time.Duration
}

// Coordinator runs chunks through a ChunkProcessor in small concurrent batches.
type Coordinator struct {
	processor ChunkProcessor
	pause     time.Duration
	sleep     retry.SleepFunc
	logger    *slog.Logger
}

// NewCoordinator builds a coordinator that waits pause between batches. A negative pause
// disables the wait.
func NewCoordinator(processor ChunkProcessor, pause time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{processor: processor, pause: pause, sleep: retry.Sleep, logger: logger}
}

// ProcessBatch processes chunks maxChunksPerBatch at a time. It only fails when ctx ends
// during the pause between batches.
func (c *Coordinator) ProcessBatch(ctx context.Context, chunks []pdf.Chunk, maxChunksPerBatch int) (*BatchResult, error) {
	start := time.Now()
	if maxChunksPerBatch <= 0 {
		maxChunksPerBatch = pdf.DefaultMaxChunksPerBatch
	}
	batches := (len(chunks) + maxChunksPerBatch - 1) / maxChunksPerBatch
	c.logger.Info("Starting batch OCR.", "totalChunks", len(chunks), "maxChunksPerBatch", maxChunksPerBatch, "batches", batches)

	results := make([]Result, 0, len(chunks))
	for b := 0; b < batches; b++ {
		group := chunks[b*maxChunksPerBatch : min((b+1)*maxChunksPerBatch, len(chunks))]
		c.logger.Info("Processing batch.", "batch", b+1, "batches", batches, "chunks", len(group))

		groupResults := make([]Result, len(group))
		eg, gctx := errgroup.WithContext(ctx)
		for i, chunk := range group {
			eg.Go(func() error {
				groupResults[i] = c.processor.ProcessChunk(gctx, chunk)
				return nil
			})
		}
		_ = eg.Wait()
		results = append(results, groupResults...)

		if b < batches-1 && c.pause > 0 {
			if err := c.sleep(ctx, c.pause); err != nil {
				return nil, err
			}
		}
	}

	out := Aggregate(results)
	out.ProcessingTime = time.Since(start)
	c.logger.Info("Batch OCR complete.",
		"totalChunks", out.TotalChunks,
		"successCount", out.SuccessCount,
		"errorCount", out.ErrorCount,
		"duration", out.ProcessingTime.String(),
	)
	return out, nil
}

// Aggregate orders results by chunk index and joins their text with a blank line.
// Failed chunks contribute their error block.
func Aggregate(results []Result) *BatchResult {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b Result) int { return a.ChunkIndex - b.ChunkIndex })

	out := &BatchResult{Results: sorted, TotalChunks: len(sorted)}
	texts := make([]string, len(sorted))
	for i, r := range sorted {
		texts[i] = r.ExtractedText
		if r.Success {
			out.SuccessCount++
		} else {
			out.ErrorCount++
		}
	}
	out.CombinedText = strings.Join(texts, "\n\n")
	return out
}
