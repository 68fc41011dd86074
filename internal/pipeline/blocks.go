package pipeline

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/Lllllllleong/duediligenceflow/internal/pdf"
)

var textTypes = map[string]bool{"txt": true, "md": true, "csv": true}

func isTextType(meta models.DocumentMetadata) bool {
	return textTypes[meta.Extension()]
}

func textBlock(meta models.DocumentMetadata, content []byte) string {
	return fmt.Sprintf("--- START OF DOCUMENT: %s ---\nType: %s\n\n%s\n--- END OF DOCUMENT: %s ---",
		meta.OriginalName, meta.DocumentType, string(content), meta.OriginalName)
}

func metadataBlock(meta models.DocumentMetadata) string {
	fileType := meta.Extension()
	if fileType == "" {
		fileType = "unknown"
	}
	return fmt.Sprintf("--- DOCUMENT METADATA: %s ---\nType: %s\nFile Type: %s\n(Content not extracted for this file type)\n--- END OF METADATA ---",
		meta.OriginalName, meta.DocumentType, fileType)
}

func missingBlock(meta models.DocumentMetadata) string {
	return fmt.Sprintf("--- ERROR READING DOCUMENT: %s ---\nError: File not found. The document appears to be missing from storage.\n--- END OF ERROR ---",
		meta.OriginalName)
}

func readErrorBlock(meta models.DocumentMetadata, err error) string {
	return fmt.Sprintf("--- ERROR READING DOCUMENT: %s ---\nError: %v\n--- END OF ERROR ---", meta.OriginalName, err)
}

func ocrErrorBlock(err error) string {
	return fmt.Sprintf("--- ERROR DURING PDF OCR PROCESSING ---\nError: %v\n--- END OF ERROR ---", err)
}

// provenanceHeader wraps the OCR text of a combined PDF with the page range of every source.
func provenanceHeader(documentCount int, combined *pdf.Combined, text string) string {
	mapping := make([]string, len(combined.PageMap))
	for i, r := range combined.PageMap {
		mapping[i] = fmt.Sprintf("Document %d: %s (Pages %d-%d)", i+1, r.Metadata.OriginalName, r.StartPage, r.EndPage)
	}
	return fmt.Sprintf(`=== COMBINED DOCUMENT PROCESSING REPORT ===
Total Documents Combined: %d
Total Pages: %d

Document Mapping:
%s

=== COMBINED CONTENT ===

%s

=== END OF COMBINED CONTENT ===
`, documentCount, combined.PageCount, strings.Join(mapping, "\n"), text)
}
