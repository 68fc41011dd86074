// Package ocr extracts text from PDF chunks with an external model and aggregates the results
// of a whole document set in order.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/duediligenceflow/internal/metrics"
	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/Lllllllleong/duediligenceflow/internal/pdf"
	"github.com/Lllllllleong/duediligenceflow/internal/retry"
)

// DefaultSizeWarningBytes is the chunk size above which provider rejections become likely.
const DefaultSizeWarningBytes = 20 * 1024 * 1024

var (
	ErrEmptyExtraction = errors.New("model returned no text")
	ErrRefused         = errors.New("model refused to transcribe the document")
)

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// Model transcribes a PDF into text.
type Model interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}

// Result is the outcome of one chunk. A failed chunk carries a readable error block in
// ExtractedText so the aggregate stays in narrative order.
type Result struct {
	ExtractedText  string                  `json:"extractedText"`
	ChunkIndex     int                     `json:"chunkIndex"`
	SourceMetadata models.DocumentMetadata `json:"sourceMetadata"`
	ProcessingTime time.Duration           `json:"processingTime"`
	Success        bool                    `json:"success"`
	Error          string                  `json:"error,omitempty"`
}

// Executor sends single chunks to the OCR model.
type Executor struct {
	model            Model
	policy           retry.Policy
	sizeWarningBytes int
	logger           *slog.Logger
}

// NewExecutor builds an executor. A zero sizeWarningBytes uses DefaultSizeWarningBytes.
func NewExecutor(model Model, policy retry.Policy, sizeWarningBytes int, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if sizeWarningBytes <= 0 {
		sizeWarningBytes = DefaultSizeWarningBytes
	}
	if policy.OnRetry == nil {
		policy.OnRetry = func(int, time.Duration, error) {
			metrics.ProviderRetries.WithLabelValues(policy.Name).Inc()
		}
	}
	policy.Logger = logger
	return &Executor{model: model, policy: policy, sizeWarningBytes: sizeWarningBytes, logger: logger}
}

// ProcessChunk never returns an error; failures are reported in the Result.
func (e *Executor) ProcessChunk(ctx context.Context, chunk pdf.Chunk) Result {
	start := time.Now()
	logCtx := e.logger.With(
		"chunkIndex", chunk.ChunkIndex,
		"totalChunks", chunk.TotalChunks,
		"originalName", chunk.SourceMetadata.OriginalName,
	)

	if len(chunk.Buffer) > e.sizeWarningBytes {
		logCtx.Warn("Chunk exceeds recommended OCR payload size.",
			"bytes", len(chunk.Buffer), "limitBytes", e.sizeWarningBytes)
	}
	logCtx.Info("Starting OCR for chunk.", "pages", chunk.PageCount, "bytes", len(chunk.Buffer))

	text, err := retry.Do(ctx, e.policy, func(ctx context.Context) (string, error) {
		text, err := e.model.ExtractText(ctx, chunk.Buffer)
		if err != nil {
			return "", err
		}
		return text, checkTranscription(text)
	})

	result := Result{
		ChunkIndex:     chunk.ChunkIndex,
		SourceMetadata: chunk.SourceMetadata,
		ProcessingTime: time.Since(start),
	}
	metrics.OCRChunkSeconds.Observe(result.ProcessingTime.Seconds())

	if err != nil {
		logCtx.Error("OCR failed for chunk after all retries.", "error", err)
		metrics.OCRChunks.WithLabelValues("error").Inc()
		result.Error = err.Error()
		result.ExtractedText = ErrorBlock(chunk.ChunkIndex, err)
		return result
	}

	logCtx.Info("OCR completed for chunk.", "chars", len(text), "duration", result.ProcessingTime.String())
	metrics.OCRChunks.WithLabelValues("success").Inc()
	result.Success = true
	result.ExtractedText = text
	return result
}

// ErrorBlock is the placeholder text for a chunk whose extraction failed.
func ErrorBlock(chunkIndex int, err error) string {
	return fmt.Sprintf("**ERROR PROCESSING CHUNK %d**\n\nError: %v\n\n---\n\n", chunkIndex+1, err)
}

// checkTranscription rejects empty output and outputs that open with a refusal.
func checkTranscription(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyExtraction
	}
	opening := strings.ToLower(trimmed)
	if len(opening) > 200 {
		opening = opening[:200]
	}
	for _, phrase := range refusalPhrases {
		if strings.Contains(opening, phrase) {
			return ErrRefused
		}
	}
	return nil
}
