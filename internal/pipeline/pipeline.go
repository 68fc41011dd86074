// Package pipeline turns a set of uploaded documents into one block of text for analysis.
// PDFs are combined, chunked and OCR'd in memory; other files are inlined or described.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/Lllllllleong/duediligenceflow/internal/ocr"
	"github.com/Lllllllleong/duediligenceflow/internal/pdf"
)

// ErrNoExtractableContent is returned when no document yielded any usable text.
var ErrNoExtractableContent = errors.New("no extractable content in documents")

// BatchRunner is satisfied by *ocr.Coordinator.
type BatchRunner interface {
	ProcessBatch(ctx context.Context, chunks []pdf.Chunk, maxChunksPerBatch int) (*ocr.BatchResult, error)
}

// Pipeline wires the combiner, chunker and OCR coordinator together.
type Pipeline struct {
	combiner *pdf.Combiner
	chunker  *pdf.Chunker
	batches  BatchRunner
	loader   Loader
	logger   *slog.Logger
}

func New(combiner *pdf.Combiner, chunker *pdf.Chunker, batches BatchRunner, loader Loader, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = FileLoader{}
	}
	return &Pipeline{combiner: combiner, chunker: chunker, batches: batches, loader: loader, logger: logger}
}

// extraction is the OCR output for a set of PDFs.
type extraction struct {
	text         string
	successCount int
}

// ProcessPDFs extracts the text of in-memory PDFs. No documents yields an empty string, a single
// document is chunked directly, and several documents are combined first and prefixed with a
// provenance header.
func (p *Pipeline) ProcessPDFs(ctx context.Context, docs []models.SourceDocument, cfg pdf.SplitConfig) (string, error) {
	out, err := p.processPDFs(ctx, docs, cfg)
	if err != nil {
		return "", err
	}
	return out.text, nil
}

func (p *Pipeline) processPDFs(ctx context.Context, docs []models.SourceDocument, cfg pdf.SplitConfig) (*extraction, error) {
	cfg = cfg.WithDefaults()
	switch len(docs) {
	case 0:
		return &extraction{}, nil
	case 1:
		return p.processDocument(ctx, docs[0].Buffer, docs[0].Metadata, cfg)
	}

	p.logger.Info("Combining PDFs before OCR.", "documentCount", len(docs))
	combined, err := p.combiner.Combine(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to combine documents: %w", err)
	}
	out, err := p.processDocument(ctx, combined.Buffer, combined.Metadata, cfg)
	if err != nil {
		return nil, err
	}
	out.text = provenanceHeader(len(docs), combined, out.text)
	return out, nil
}

func (p *Pipeline) processDocument(ctx context.Context, buf []byte, meta models.DocumentMetadata, cfg pdf.SplitConfig) (*extraction, error) {
	chunks, err := p.chunker.Split(ctx, buf, meta, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk %s: %w", meta.OriginalName, err)
	}
	if len(chunks) == 0 {
		return &extraction{}, nil
	}
	result, err := p.batches.ProcessBatch(ctx, chunks, cfg.MaxChunksPerBatch)
	if err != nil {
		return nil, fmt.Errorf("failed to OCR %s: %w", meta.OriginalName, err)
	}
	if result.ErrorCount > 0 {
		p.logger.Warn("Some chunks failed OCR.",
			"originalName", meta.OriginalName, "errorCount", result.ErrorCount, "totalChunks", result.TotalChunks)
	}
	return &extraction{text: result.CombinedText, successCount: result.SuccessCount}, nil
}

// Process loads every referenced document and returns the text to analyse. PDFs go through OCR,
// txt/md/csv files are inlined, other types are described by their metadata, and unreadable
// files become error blocks. It fails only when nothing usable was extracted.
func (p *Pipeline) Process(ctx context.Context, refs []models.DocumentRef, cfg pdf.SplitConfig) (string, error) {
	var (
		pdfs    []models.SourceDocument
		blocks  []string
		content int
	)

	for _, ref := range refs {
		meta := ref.Metadata
		if meta.OriginalName == "" {
			meta.OriginalName = path.Base(ref.Location)
		}
		logCtx := p.logger.With("originalName", meta.OriginalName, "documentType", meta.DocumentType)

		if !meta.IsPDF() && !isTextType(meta) {
			blocks = append(blocks, metadataBlock(meta))
			continue
		}

		buf, err := p.load(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, ErrDocumentNotFound) {
				logCtx.Warn("Document file is missing.", "location", ref.Location)
				blocks = append(blocks, missingBlock(meta))
			} else {
				logCtx.Error("Failed to read document.", "location", ref.Location, "error", err)
				blocks = append(blocks, readErrorBlock(meta, err))
			}
			continue
		}

		if meta.IsPDF() {
			pdfs = append(pdfs, models.SourceDocument{Buffer: buf, Metadata: meta})
			continue
		}
		blocks = append(blocks, textBlock(meta, buf))
		content++
	}

	var sections []string
	if len(pdfs) > 0 {
		out, err := p.processPDFs(ctx, pdfs, cfg)
		switch {
		case err != nil && ctx.Err() != nil:
			return "", ctx.Err()
		case err != nil:
			p.logger.Error("PDF processing failed.", "pdfCount", len(pdfs), "error", err)
			if content == 0 {
				return "", fmt.Errorf("%w: %v", ErrNoExtractableContent, err)
			}
			sections = append(sections, ocrErrorBlock(err))
		default:
			content += out.successCount
			sections = append(sections, out.text)
		}
	}

	if content == 0 {
		return "", fmt.Errorf("%w: %d documents provided", ErrNoExtractableContent, len(refs))
	}

	sections = append(sections, blocks...)
	text := strings.TrimSpace(strings.Join(sections, "\n\n"))
	p.logger.Info("Document pipeline complete.",
		"documentCount", len(refs), "pdfCount", len(pdfs), "chars", len(text))
	return text, nil
}

func (p *Pipeline) load(ctx context.Context, ref models.DocumentRef) ([]byte, error) {
	if ref.Buffer != nil {
		return ref.Buffer, nil
	}
	if ref.Location == "" {
		return nil, fmt.Errorf("no location recorded: %w", ErrDocumentNotFound)
	}
	return p.loader.Load(ctx, ref.Location)
}
