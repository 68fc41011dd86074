package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	DefaultPagesPerChunk     = 38
	DefaultMaxChunksPerBatch = 1
)

// SplitConfig controls chunk size and how many chunks are OCR'd at the same time.
type SplitConfig struct {
	PagesPerChunk     int `json:"pagesPerChunk"`
	MaxChunksPerBatch int `json:"maxChunksPerBatch"`
}

func DefaultSplitConfig() SplitConfig {
	return SplitConfig{PagesPerChunk: DefaultPagesPerChunk, MaxChunksPerBatch: DefaultMaxChunksPerBatch}
}

// WithDefaults replaces non-positive values with the defaults.
func (c SplitConfig) WithDefaults() SplitConfig {
	if c.PagesPerChunk <= 0 {
		c.PagesPerChunk = DefaultPagesPerChunk
	}
	if c.MaxChunksPerBatch <= 0 {
		c.MaxChunksPerBatch = DefaultMaxChunksPerBatch
	}
	return c
}

// Chunk is a page-bounded slice of a PDF sized for one OCR call. SourceMetadata is the metadata
// of the document that was split, not of the chunk.
type Chunk struct {
	Buffer         []byte
	ChunkIndex     int
	TotalChunks    int
	SourceMetadata models.DocumentMetadata
	PageCount      int
	FirstPage      int
	LastPage       int
}

// Chunker splits PDFs into fixed-size page chunks.
type Chunker struct {
	logger *slog.Logger
}

func NewChunker(logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{logger: logger}
}

// Split copies consecutive runs of cfg.PagesPerChunk pages into fresh PDFs.
// A document without pages yields no chunks.
func (c *Chunker) Split(ctx context.Context, buf []byte, meta models.DocumentMetadata, cfg SplitConfig) ([]Chunk, error) {
	cfg = cfg.WithDefaults()
	logCtx := c.logger.With("originalName", meta.OriginalName)

	totalPages, err := PageCount(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", meta.OriginalName, err)
	}
	if totalPages == 0 {
		logCtx.Warn("PDF has no pages, nothing to split.")
		return nil, nil
	}

	totalChunks := (totalPages + cfg.PagesPerChunk - 1) / cfg.PagesPerChunk
	logCtx.Info("Splitting PDF into chunks.",
		"totalPages", totalPages, "pagesPerChunk", cfg.PagesPerChunk, "totalChunks", totalChunks)

	chunks := make([]Chunk, 0, totalChunks)
	for i := 0; i < totalChunks; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		first := i*cfg.PagesPerChunk + 1
		last := min((i+1)*cfg.PagesPerChunk, totalPages)

		chunkBuf, err := extractPages(buf, first, last)
		if err != nil {
			return nil, fmt.Errorf("failed to extract pages %d-%d of %s: %w", first, last, meta.OriginalName, err)
		}
		chunks = append(chunks, Chunk{
			Buffer:         chunkBuf,
			ChunkIndex:     i,
			TotalChunks:    totalChunks,
			SourceMetadata: meta,
			PageCount:      last - first + 1,
			FirstPage:      first,
			LastPage:       last,
		})
		logCtx.Info("Created chunk.", "chunkIndex", i, "firstPage", first, "lastPage", last, "bytes", len(chunkBuf))
	}
	return chunks, nil
}

func extractPages(buf []byte, first, last int) ([]byte, error) {
	selection := fmt.Sprintf("%d-%d", first, last)
	if first == last {
		selection = fmt.Sprintf("%d", first)
	}
	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(buf), &out, []string{selection}, newConfiguration()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
