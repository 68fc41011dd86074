package models

import (
	"path"
	"strings"
	"time"
)

// DocumentMetadata describes a single uploaded file. It travels with the file's bytes
// through combination, chunking and OCR so extracted text can be attributed to its source.
type DocumentMetadata struct {
	OriginalName string `json:"originalName" firestore:"originalName"`
	DocumentType string `json:"documentType" firestore:"documentType"`
	Description  string `json:"description,omitempty" firestore:"description,omitempty"`
	TimePeriod   string `json:"timePeriod,omitempty" firestore:"timePeriod,omitempty"`
	FileType     string `json:"fileType,omitempty" firestore:"fileType,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty" firestore:"fileSize,omitempty"`
}

// Extension returns the lower-cased file type, falling back to the extension of OriginalName.
func (m DocumentMetadata) Extension() string {
	if m.FileType != "" {
		return strings.ToLower(strings.TrimPrefix(m.FileType, "."))
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(m.OriginalName), "."))
}

// IsPDF reports whether the document should go through the OCR path.
func (m DocumentMetadata) IsPDF() bool {
	return m.Extension() == "pdf"
}

// SourceDocument is a PDF held in memory for the duration of one pipeline call.
type SourceDocument struct {
	Buffer   []byte
	Metadata DocumentMetadata
}

// DocumentRef points the pipeline at a document's bytes. Either Buffer is set, or Location
// names a local path or a gs:// URI that a loader resolves.
type DocumentRef struct {
	Location string
	Buffer   []byte
	Metadata DocumentMetadata
}

// Document is the Firestore record for an uploaded file belonging to an entity.
type Document struct {
	ID           string    `firestore:"-"`
	EntityID     string    `firestore:"entityId"`
	DocumentType string    `firestore:"documentType"`
	OriginalName string    `firestore:"originalName"`
	Description  string    `firestore:"description,omitempty"`
	TimePeriod   string    `firestore:"timePeriod,omitempty"`
	FileType     string    `firestore:"fileType,omitempty"`
	FileSize     int64     `firestore:"fileSize,omitempty"`
	FileHash     string    `firestore:"fileHash,omitempty"`
	PageCount    int       `firestore:"pageCount,omitempty"`
	GCSUri       string    `firestore:"gcsUri,omitempty"`
	FilePath     string    `firestore:"filePath,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
}

// Ref converts the stored record into something the pipeline can load.
func (d Document) Ref() DocumentRef {
	location := d.GCSUri
	if location == "" {
		location = d.FilePath
	}
	return DocumentRef{
		Location: location,
		Metadata: DocumentMetadata{
			OriginalName: d.OriginalName,
			DocumentType: d.DocumentType,
			Description:  d.Description,
			TimePeriod:   d.TimePeriod,
			FileType:     d.FileType,
			FileSize:     d.FileSize,
		},
	}
}
