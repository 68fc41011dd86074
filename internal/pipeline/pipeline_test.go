package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/Lllllllleong/duediligenceflow/internal/ocr"
	"github.com/Lllllllleong/duediligenceflow/internal/pdf"
	"github.com/Lllllllleong/duediligenceflow/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageCountingModel "transcribes" a chunk as its page count.
type pageCountingModel struct{}

func (pageCountingModel) ExtractText(_ context.Context, buf []byte) (string, error) {
	n, err := pdf.PageCount(buf)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("pages=%d", n), nil
}

func newTestPipeline(loader Loader) (*Pipeline, *ocr.Coordinator, *pdf.Chunker) {
	policy := retry.OCRPolicy()
	policy.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	coordinator := ocr.NewCoordinator(ocr.NewExecutor(pageCountingModel{}, policy, 0, nil), 0, nil)
	chunker := pdf.NewChunker(nil)
	return New(pdf.NewCombiner(nil), chunker, coordinator, loader, nil), coordinator, chunker
}

func pdfDoc(t *testing.T, name string, pages int) models.SourceDocument {
	t.Helper()
	texts := make([]string, pages)
	for i := range texts {
		texts[i] = fmt.Sprintf("%s %d", name, i+1)
	}
	buf, err := pdf.Render(texts)
	require.NoError(t, err)
	return models.SourceDocument{
		Buffer:   buf,
		Metadata: models.DocumentMetadata{OriginalName: name, DocumentType: "financial_balance_sheet", FileType: "pdf"},
	}
}

func TestProcessPDFsWithNoDocuments(t *testing.T) {
	p, _, _ := newTestPipeline(nil)
	text, err := p.ProcessPDFs(context.Background(), nil, pdf.SplitConfig{})
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestProcessPDFsSingleDocumentMatchesDirectChunking(t *testing.T) {
	p, coordinator, chunker := newTestPipeline(nil)
	doc := pdfDoc(t, "statement.pdf", 40)

	text, err := p.ProcessPDFs(context.Background(), []models.SourceDocument{doc}, pdf.DefaultSplitConfig())
	require.NoError(t, err)

	chunks, err := chunker.Split(context.Background(), doc.Buffer, doc.Metadata, pdf.DefaultSplitConfig())
	require.NoError(t, err)
	direct, err := coordinator.ProcessBatch(context.Background(), chunks, 1)
	require.NoError(t, err)

	assert.Equal(t, direct.CombinedText, text)
	assert.Equal(t, "pages=38\n\npages=2", text)
	assert.NotContains(t, text, "COMBINED DOCUMENT PROCESSING REPORT")
}

func TestProcessPDFsCombinesWithProvenanceHeader(t *testing.T) {
	p, _, _ := newTestPipeline(nil)
	docs := []models.SourceDocument{pdfDoc(t, "a.pdf", 5), pdfDoc(t, "b.pdf", 3), pdfDoc(t, "c.pdf", 40)}

	text, err := p.ProcessPDFs(context.Background(), docs, pdf.DefaultSplitConfig())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "=== COMBINED DOCUMENT PROCESSING REPORT ===\nTotal Documents Combined: 3\nTotal Pages: 48\n"))
	assert.Contains(t, text, "Document 1: a.pdf (Pages 1-5)\nDocument 2: b.pdf (Pages 6-8)\nDocument 3: c.pdf (Pages 9-48)")
	assert.Contains(t, text, "=== COMBINED CONTENT ===\n\npages=38\n\npages=10\n\n=== END OF COMBINED CONTENT ===")
}

func TestProcessMixesPDFTextAndOtherDocuments(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(notes, []byte("Board approved the round."), 0o600))

	p, _, _ := newTestPipeline(RoutingLoader{Local: FileLoader{}})
	doc := pdfDoc(t, "moa.pdf", 2)
	refs := []models.DocumentRef{
		{Buffer: doc.Buffer, Metadata: doc.Metadata},
		{Location: notes, Metadata: models.DocumentMetadata{OriginalName: "notes.md", DocumentType: "legal_board_resolutions"}},
		{Location: filepath.Join(dir, "captable.xlsx"), Metadata: models.DocumentMetadata{OriginalName: "captable.xlsx", DocumentType: "legal_cap_table_legal", FileType: "xlsx"}},
		{Location: filepath.Join(dir, "gone.pdf"), Metadata: models.DocumentMetadata{OriginalName: "gone.pdf", DocumentType: "legal_moa_aoa", FileType: "pdf"}},
	}

	text, err := p.Process(context.Background(), refs, pdf.DefaultSplitConfig())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "pages=2"))
	assert.Contains(t, text, "--- START OF DOCUMENT: notes.md ---\nType: legal_board_resolutions\n\nBoard approved the round.\n--- END OF DOCUMENT: notes.md ---")
	assert.Contains(t, text, "--- DOCUMENT METADATA: captable.xlsx ---\nType: legal_cap_table_legal\nFile Type: xlsx\n(Content not extracted for this file type)")
	assert.Contains(t, text, "--- ERROR READING DOCUMENT: gone.pdf ---")
}

func TestProcessFailsWithoutUsableContent(t *testing.T) {
	p, _, _ := newTestPipeline(nil)
	refs := []models.DocumentRef{
		{Location: filepath.Join(t.TempDir(), "missing.pdf"), Metadata: models.DocumentMetadata{OriginalName: "missing.pdf", FileType: "pdf"}},
	}
	_, err := p.Process(context.Background(), refs, pdf.SplitConfig{})
	assert.ErrorIs(t, err, ErrNoExtractableContent)

	refs = []models.DocumentRef{
		{Buffer: []byte("garbage"), Metadata: models.DocumentMetadata{OriginalName: "x.pdf"}},
		{Buffer: []byte("garbage"), Metadata: models.DocumentMetadata{OriginalName: "y.pdf"}},
	}
	_, err = p.Process(context.Background(), refs, pdf.SplitConfig{})
	assert.ErrorIs(t, err, ErrNoExtractableContent)
}

func TestProcessKeepsTextWhenPDFsFail(t *testing.T) {
	p, _, _ := newTestPipeline(nil)
	refs := []models.DocumentRef{
		{Buffer: []byte("garbage"), Metadata: models.DocumentMetadata{OriginalName: "x.pdf"}},
		{Buffer: []byte("revenue,100"), Metadata: models.DocumentMetadata{OriginalName: "pl.csv", DocumentType: "financial_income_statement"}},
	}
	text, err := p.Process(context.Background(), refs, pdf.SplitConfig{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "--- ERROR DURING PDF OCR PROCESSING ---"))
	assert.Contains(t, text, "revenue,100")
}

type stubLoader struct{ calls []string }

func (s *stubLoader) Load(_ context.Context, location string) ([]byte, error) {
	s.calls = append(s.calls, location)
	return nil, errors.New("stub")
}

func TestRoutingLoader(t *testing.T) {
	remote := &stubLoader{}
	local := &stubLoader{}
	l := RoutingLoader{Local: local, Remote: remote}

	_, _ = l.Load(context.Background(), "gs://bucket/e1/doc.pdf")
	_, _ = l.Load(context.Background(), "/data/doc.pdf")
	assert.Equal(t, []string{"gs://bucket/e1/doc.pdf"}, remote.calls)
	assert.Equal(t, []string{"/data/doc.pdf"}, local.calls)

	_, err := RoutingLoader{}.Load(context.Background(), "gs://bucket/x")
	assert.Error(t, err)
}

func TestFileLoaderNotFound(t *testing.T) {
	_, err := FileLoader{}.Load(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
