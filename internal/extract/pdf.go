package extract

import (
	"bytes"
	"fmt"
	"strings"

	fallbackpdf "github.com/dslipak/pdf"
	"github.com/ledongthuc/pdf"
)

// extractPDF extracts per-page text with page markers. The primary parser
// (ledongthuc/pdf) handles page structure; if it fails the whole document is
// retried with dslipak/pdf, and when both fail the fallback's error is
// reported. Both libraries panic on some malformed inputs, so each path runs
// behind a recover.
func extractPDF(content []byte, name string) (*Result, error) {
	res, err := extractPDFPrimary(content, name)
	if err == nil {
		return res, nil
	}
	res, ferr := extractPDFFallback(content, name)
	if ferr != nil {
		return nil, fmt.Errorf("PDF processing failed: %w", ferr)
	}
	return res, nil
}

func extractPDFPrimary(content []byte, name string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("parse PDF: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", len(pages)+1, text))
	}
	return &Result{
		Text:     strings.Join(pages, "\n\n"),
		Metadata: pdfMetadata(name, len(pages)),
	}, nil
}

func extractPDFFallback(content []byte, name string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("parse PDF: %v", r)
		}
	}()
	r, err := fallbackpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("read PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, fmt.Errorf("read PDF text: %w", err)
	}
	return &Result{
		Text:     buf.String(),
		Metadata: pdfMetadata(name, r.NumPage()),
	}, nil
}

func pdfMetadata(name string, pages int) map[string]interface{} {
	return map[string]interface{}{
		"file_type": "pdf",
		"pages":     pages,
		"file_name": name,
	}
}
