package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, name string, pages int) models.SourceDocument {
	t.Helper()
	texts := make([]string, pages)
	for i := range texts {
		texts[i] = fmt.Sprintf("%s page %d", name, i+1)
	}
	buf, err := Render(texts)
	require.NoError(t, err)
	return models.SourceDocument{
		Buffer:   buf,
		Metadata: models.DocumentMetadata{OriginalName: name + ".pdf", DocumentType: "legal_moa_aoa", FileType: "pdf"},
	}
}

func TestRenderProducesReadablePDF(t *testing.T) {
	buf, err := Render([]string{"one", "two (with parens)\nsecond line", ""})
	require.NoError(t, err)
	n, err := PageCount(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = Render(nil)
	assert.Error(t, err)
}

func TestPageCountRejectsEmptyBuffer(t *testing.T) {
	_, err := PageCount(nil)
	assert.ErrorIs(t, err, ErrEmptyBuffer)
}

func TestCombinePreservesOrderAndPageMap(t *testing.T) {
	a, b, c := fixture(t, "a", 5), fixture(t, "b", 3), fixture(t, "c", 40)
	a.Metadata.TimePeriod = "FY2023"
	c.Metadata.TimePeriod = "FY2024"

	combined, err := NewCombiner(nil).Combine(context.Background(), []models.SourceDocument{a, b, c})
	require.NoError(t, err)

	pages, err := PageCount(combined.Buffer)
	require.NoError(t, err)
	assert.Equal(t, 48, pages)
	assert.Equal(t, 48, combined.PageCount)
	assert.Equal(t, 3, combined.Loaded)

	require.Len(t, combined.PageMap, 3)
	assert.Equal(t, PageRange{StartPage: 1, EndPage: 5, Metadata: a.Metadata}, combined.PageMap[0])
	assert.Equal(t, PageRange{StartPage: 6, EndPage: 8, Metadata: b.Metadata}, combined.PageMap[1])
	assert.Equal(t, PageRange{StartPage: 9, EndPage: 48, Metadata: c.Metadata}, combined.PageMap[2])

	assert.Equal(t, "Combined_PDF_3_Documents", combined.Metadata.OriginalName)
	assert.Equal(t, "Combined PDF containing 3 documents: a.pdf, b.pdf, c.pdf", combined.Metadata.Description)
	assert.Equal(t, "FY2023, FY2024", combined.Metadata.TimePeriod)
	assert.Equal(t, int64(len(combined.Buffer)), combined.Metadata.FileSize)
}

func TestCombineReplacesCorruptDocumentWithPlaceholder(t *testing.T) {
	a, c := fixture(t, "a", 2), fixture(t, "c", 4)
	broken := models.SourceDocument{
		Buffer:   []byte("this is not a pdf"),
		Metadata: models.DocumentMetadata{OriginalName: "broken.pdf"},
	}

	combined, err := NewCombiner(nil).Combine(context.Background(), []models.SourceDocument{a, broken, c})
	require.NoError(t, err)

	require.Len(t, combined.PageMap, 3)
	assert.Equal(t, 3, combined.PageMap[1].StartPage)
	assert.Equal(t, 3, combined.PageMap[1].EndPage)
	assert.Contains(t, combined.PageMap[1].Metadata.OriginalName, "broken.pdf (ERROR:")
	assert.Equal(t, 4, combined.PageMap[2].StartPage)
	assert.Equal(t, 7, combined.PageMap[2].EndPage)
	assert.Equal(t, 2, combined.Loaded)

	pages, err := PageCount(combined.Buffer)
	require.NoError(t, err)
	sum := 0
	for _, r := range combined.PageMap {
		sum += r.EndPage - r.StartPage + 1
	}
	assert.Equal(t, pages, sum)
	assert.GreaterOrEqual(t, pages, 3)
}

// mergeRejecting merges like mergeRaw but fails whenever one of the inputs is in rejected.
func mergeRejecting(rejected ...[]byte) func([]io.ReadSeeker, io.Writer) error {
	return func(readers []io.ReadSeeker, w io.Writer) error {
		for _, r := range readers {
			buf, err := io.ReadAll(r)
			if err != nil {
				return err
			}
			for _, bad := range rejected {
				if bytes.Equal(buf, bad) {
					return errors.New("unsupported object stream")
				}
			}
			if _, err := r.Seek(0, io.SeekStart); err != nil {
				return err
			}
		}
		return mergeRaw(readers, w)
	}
}

func TestCombineFallsBackToPerDocumentMerge(t *testing.T) {
	a, b, c := fixture(t, "a", 2), fixture(t, "b", 3), fixture(t, "c", 4)
	combiner := NewCombiner(nil)
	combiner.merge = mergeRejecting(b.Buffer)

	combined, err := combiner.Combine(context.Background(), []models.SourceDocument{a, b, c})
	require.NoError(t, err)

	assert.Equal(t, 2, combined.Loaded)
	assert.Equal(t, 7, combined.PageCount)
	require.Len(t, combined.PageMap, 3)
	assert.Equal(t, PageRange{StartPage: 1, EndPage: 2, Metadata: a.Metadata}, combined.PageMap[0])
	assert.Equal(t, 3, combined.PageMap[1].StartPage)
	assert.Equal(t, 3, combined.PageMap[1].EndPage)
	assert.Contains(t, combined.PageMap[1].Metadata.OriginalName, "b.pdf (ERROR: unsupported object stream")
	assert.Equal(t, PageRange{StartPage: 4, EndPage: 7, Metadata: c.Metadata}, combined.PageMap[2])

	pages, err := PageCount(combined.Buffer)
	require.NoError(t, err)
	assert.Equal(t, 7, pages)
}

func TestCombineFailsWhenNoDocumentMerges(t *testing.T) {
	a, b := fixture(t, "a", 1), fixture(t, "b", 2)
	combiner := NewCombiner(nil)
	combiner.merge = mergeRejecting(a.Buffer, b.Buffer)

	_, err := combiner.Combine(context.Background(), []models.SourceDocument{a, b})
	assert.ErrorIs(t, err, ErrNoLoadableDocuments)
}

func TestCombineFailsWhenNothingLoads(t *testing.T) {
	docs := []models.SourceDocument{
		{Buffer: []byte("nope"), Metadata: models.DocumentMetadata{OriginalName: "x.pdf"}},
		{Buffer: nil, Metadata: models.DocumentMetadata{OriginalName: "y.pdf"}},
	}
	_, err := NewCombiner(nil).Combine(context.Background(), docs)
	assert.ErrorIs(t, err, ErrNoLoadableDocuments)

	_, err = NewCombiner(nil).Combine(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoLoadableDocuments)
}

func TestCombineSingleDocumentIsPassThrough(t *testing.T) {
	a := fixture(t, "solo", 4)
	combined, err := NewCombiner(nil).Combine(context.Background(), []models.SourceDocument{a})
	require.NoError(t, err)
	assert.Equal(t, a.Buffer, combined.Buffer)
	assert.Equal(t, a.Metadata, combined.Metadata)
	assert.Equal(t, []PageRange{{StartPage: 1, EndPage: 4, Metadata: a.Metadata}}, combined.PageMap)
}

func TestSplitCombinedDocument(t *testing.T) {
	combined, err := NewCombiner(nil).Combine(context.Background(),
		[]models.SourceDocument{fixture(t, "a", 5), fixture(t, "b", 3), fixture(t, "c", 40)})
	require.NoError(t, err)

	chunks, err := NewChunker(nil).Split(context.Background(), combined.Buffer, combined.Metadata, DefaultSplitConfig())
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, 2, chunk.TotalChunks)
		assert.Equal(t, combined.Metadata, chunk.SourceMetadata)
	}
	assert.Equal(t, 38, chunks[0].PageCount)
	assert.Equal(t, 10, chunks[1].PageCount)
	assert.Equal(t, 39, chunks[1].FirstPage)
	assert.Equal(t, 48, chunks[1].LastPage)

	for _, chunk := range chunks {
		n, err := PageCount(chunk.Buffer)
		require.NoError(t, err)
		assert.Equal(t, chunk.PageCount, n)
	}
}

func TestSplitUsesConfiguredChunkSize(t *testing.T) {
	doc := fixture(t, "d", 7)
	chunks, err := NewChunker(nil).Split(context.Background(), doc.Buffer, doc.Metadata, SplitConfig{PagesPerChunk: 3})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int{3, 3, 1}, []int{chunks[0].PageCount, chunks[1].PageCount, chunks[2].PageCount})
	assert.Equal(t, 7, chunks[2].FirstPage)
}

func TestSplitConfigDefaults(t *testing.T) {
	assert.Equal(t, SplitConfig{PagesPerChunk: 38, MaxChunksPerBatch: 1}, SplitConfig{}.WithDefaults())
	assert.Equal(t, SplitConfig{PagesPerChunk: 20, MaxChunksPerBatch: 2}, SplitConfig{PagesPerChunk: 20, MaxChunksPerBatch: 2}.WithDefaults())
}
