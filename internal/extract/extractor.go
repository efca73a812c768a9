// Package extract converts raw document bytes into normalized text and metadata.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agrilab/agrichat/internal/models"
)

// Result is the outcome of a successful extraction: the full normalized text
// (never chunked) and format-specific metadata such as page or paragraph
// counts, encoding, or image dimensions.
type Result struct {
	Text     string
	Metadata map[string]interface{}
}

// formats maps supported file extensions to their document format.
var formats = map[string]models.FileType{
	".pdf":  models.FileTypePDF,
	".docx": models.FileTypeDocx,
	".txt":  models.FileTypeText,
	".md":   models.FileTypeText,
	".jpg":  models.FileTypeImage,
	".jpeg": models.FileTypeImage,
	".png":  models.FileTypeImage,
	".bmp":  models.FileTypeImage,
	".tiff": models.FileTypeImage,
}

// Format returns the document format for filename, or false when the
// extension is not supported.
func Format(filename string) (models.FileType, bool) {
	ft, ok := formats[strings.ToLower(filepath.Ext(filename))]
	return ft, ok
}

// SupportedExtensions returns the recognized file extensions (with leading dot).
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	return exts
}

// Extractor extracts text from document bytes by format.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract dispatches on the filename's extension and returns the extracted
// text and metadata. Unsupported extensions fail before any parsing.
// Parser failures of every kind, panics included, come back as errors; the
// method itself never panics.
func (e *Extractor) Extract(content []byte, filename string) (*Result, error) {
	name := filepath.Base(filename)
	ft, ok := Format(filename)
	if !ok {
		return nil, fmt.Errorf("unsupported file format: %s", filepath.Ext(filename))
	}
	switch ft {
	case models.FileTypePDF:
		return extractPDF(content, name)
	case models.FileTypeDocx:
		return extractDocx(content, name)
	case models.FileTypeText:
		return extractPlain(content, name)
	case models.FileTypeImage:
		return extractImage(content, name)
	}
	return nil, fmt.Errorf("no extractor for format %q", ft)
}
