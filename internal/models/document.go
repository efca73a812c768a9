// Package models defines core data structures for documents, messages, and threads.
package models

import "time"

// FileType identifies the supported upload formats.
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeDocx  FileType = "docx"
	FileTypeText  FileType = "text"
	FileTypeImage FileType = "image"
)

// Document is a fully processed upload. Documents are immutable once created:
// there is no update path, and deleting a thread never deletes its documents.
type Document struct {
	DocID       string                 `json:"doc_id" db:"doc_id"`
	Filename    string                 `json:"filename" db:"original_filename"`
	FileType    FileType               `json:"file_type" db:"file_type"`
	FileSize    int64                  `json:"file_size" db:"file_size"`
	ContentText string                 `json:"-" db:"content_text"`
	Metadata    map[string]interface{} `json:"metadata" db:"metadata"`
	UploadedAt  time.Time              `json:"upload_timestamp" db:"upload_timestamp"`
}

// DocumentInfo is a document summary without the extracted text, as returned
// by listing endpoints.
type DocumentInfo struct {
	DocID      string                 `json:"doc_id"`
	Filename   string                 `json:"filename"`
	FileType   FileType               `json:"file_type"`
	FileSize   int64                  `json:"file_size"`
	Metadata   map[string]interface{} `json:"metadata"`
	UploadedAt time.Time              `json:"upload_timestamp"`
}

// Info returns the summary view of d.
func (d *Document) Info() *DocumentInfo {
	return &DocumentInfo{
		DocID:      d.DocID,
		Filename:   d.Filename,
		FileType:   d.FileType,
		FileSize:   d.FileSize,
		Metadata:   d.Metadata,
		UploadedAt: d.UploadedAt,
	}
}
