package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageRange records which pages of a combined PDF came from which source document.
// Pages are 1-based and inclusive.
type PageRange struct {
	StartPage int                     `json:"startPage"`
	EndPage   int                     `json:"endPage"`
	Metadata  models.DocumentMetadata `json:"originalMetadata"`
}

// Combined is the result of merging several source documents into one PDF.
type Combined struct {
	Buffer    []byte
	Metadata  models.DocumentMetadata
	PageMap   []PageRange
	PageCount int
	// Loaded is the number of input documents that were merged from their own pages.
	Loaded int
}

// Combiner merges source PDFs in input order. A document that cannot be read or merged is
// replaced by a one-page placeholder so every input keeps exactly one page-map entry.
type Combiner struct {
	logger *slog.Logger
	merge  func(readers []io.ReadSeeker, w io.Writer) error
}

func NewCombiner(logger *slog.Logger) *Combiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Combiner{logger: logger, merge: mergeRaw}
}

func mergeRaw(readers []io.ReadSeeker, w io.Writer) error {
	return api.MergeRaw(readers, w, false, newConfiguration())
}

// part is one input document as it goes into the combined PDF.
type part struct {
	buf    []byte
	pages  int
	meta   models.DocumentMetadata
	loaded bool
}

// Combine merges docs into a single PDF. A single document is passed through unchanged.
// It fails only when none of the documents could be loaded.
func (c *Combiner) Combine(ctx context.Context, docs []models.SourceDocument) (*Combined, error) {
	if len(docs) == 0 {
		return nil, ErrNoLoadableDocuments
	}
	if len(docs) == 1 {
		return c.passThrough(docs[0])
	}

	c.logger.Info("Combining PDF documents.", "documentCount", len(docs))

	parts := make([]part, 0, len(docs))
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pages, err := PageCount(doc.Buffer)
		if err == nil && pages == 0 {
			err = errors.New("document has no pages")
		}
		if err != nil {
			c.logger.Warn("Failed to load document, inserting placeholder page.",
				"documentIndex", i, "originalName", doc.Metadata.OriginalName, "error", err)
			p, perr := placeholder(i, doc, err)
			if perr != nil {
				return nil, perr
			}
			parts = append(parts, p)
			continue
		}

		parts = append(parts, part{buf: doc.Buffer, pages: pages, meta: doc.Metadata, loaded: true})
		c.logger.Info("Added document to combined PDF.",
			"documentIndex", i, "originalName", doc.Metadata.OriginalName, "pages", pages)
	}
	if countLoaded(parts) == 0 {
		return nil, fmt.Errorf("failed to combine %d documents: %w", len(docs), ErrNoLoadableDocuments)
	}

	buf, err := c.mergeParts(parts)
	if err != nil {
		c.logger.Warn("Failed to merge PDF documents together, merging one at a time.", "error", err)
		if buf, err = c.mergeEach(ctx, docs, parts); err != nil {
			return nil, err
		}
	}

	combined := &Combined{
		Buffer:   buf,
		Metadata: combinedMetadata(docs, len(buf)),
		Loaded:   countLoaded(parts),
	}
	for _, p := range parts {
		combined.PageMap = append(combined.PageMap, PageRange{
			StartPage: combined.PageCount + 1,
			EndPage:   combined.PageCount + p.pages,
			Metadata:  p.meta,
		})
		combined.PageCount += p.pages
	}
	c.logger.Info("Combined PDF created.",
		"totalPages", combined.PageCount, "loadedDocuments", combined.Loaded, "bytes", len(buf))
	return combined, nil
}

func (c *Combiner) mergeParts(parts []part) ([]byte, error) {
	readers := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		readers[i] = bytes.NewReader(p.buf)
	}
	var out bytes.Buffer
	if err := c.merge(readers, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// mergeEach appends parts to the combined PDF one at a time. A part that cannot be merged is
// replaced in parts by its placeholder.
func (c *Combiner) mergeEach(ctx context.Context, docs []models.SourceDocument, parts []part) ([]byte, error) {
	var acc []byte
	for i := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := c.appendPart(acc, parts[i])
		if err != nil {
			c.logger.Warn("Failed to merge document, inserting placeholder page.",
				"documentIndex", i, "originalName", docs[i].Metadata.OriginalName, "error", err)
			if parts[i], err = placeholder(i, docs[i], err); err != nil {
				return nil, err
			}
			if next, err = c.appendPart(acc, parts[i]); err != nil {
				return nil, fmt.Errorf("failed to merge placeholder for document %d: %w", i+1, err)
			}
		}
		acc = next
	}
	if countLoaded(parts) == 0 {
		return nil, fmt.Errorf("failed to combine %d documents: %w", len(docs), ErrNoLoadableDocuments)
	}
	return acc, nil
}

func (c *Combiner) appendPart(acc []byte, p part) ([]byte, error) {
	if acc == nil {
		return c.mergeParts([]part{p})
	}
	return c.mergeParts([]part{{buf: acc}, p})
}

// placeholder renders the single page that stands in for document i.
func placeholder(i int, doc models.SourceDocument, cause error) (part, error) {
	buf, err := Render([]string{fmt.Sprintf(
		"Document %d could not be loaded: %s\nError: %v", i+1, doc.Metadata.OriginalName, cause)})
	if err != nil {
		return part{}, fmt.Errorf("failed to render placeholder for document %d: %w", i+1, err)
	}
	meta := doc.Metadata
	meta.OriginalName = fmt.Sprintf("%s (ERROR: %v)", doc.Metadata.OriginalName, cause)
	return part{buf: buf, pages: 1, meta: meta}, nil
}

func countLoaded(parts []part) int {
	n := 0
	for _, p := range parts {
		if p.loaded {
			n++
		}
	}
	return n
}

func (c *Combiner) passThrough(doc models.SourceDocument) (*Combined, error) {
	pages, err := PageCount(doc.Buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w: %v", doc.Metadata.OriginalName, ErrNoLoadableDocuments, err)
	}
	return &Combined{
		Buffer:    doc.Buffer,
		Metadata:  doc.Metadata,
		PageMap:   []PageRange{{StartPage: 1, EndPage: pages, Metadata: doc.Metadata}},
		PageCount: pages,
		Loaded:    1,
	}, nil
}

func combinedMetadata(docs []models.SourceDocument, size int) models.DocumentMetadata {
	names := make([]string, 0, len(docs))
	var periods []string
	for _, doc := range docs {
		names = append(names, doc.Metadata.OriginalName)
		if doc.Metadata.TimePeriod != "" {
			periods = append(periods, doc.Metadata.TimePeriod)
		}
	}
	return models.DocumentMetadata{
		OriginalName: fmt.Sprintf("Combined_PDF_%d_Documents", len(docs)),
		DocumentType: "combined",
		Description:  fmt.Sprintf("Combined PDF containing %d documents: %s", len(docs), strings.Join(names, ", ")),
		TimePeriod:   strings.Join(periods, ", "),
		FileType:     "pdf",
		FileSize:     int64(size),
	}
}
