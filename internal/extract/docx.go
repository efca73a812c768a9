package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// wpBlock matches one <w:p>...</w:p> paragraph, attributes included
// (real-world documents carry attributes such as w:rsidR on every paragraph).
var wpBlock = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)

// wtTag matches the text nodes inside a paragraph.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// partNameRe extracts PartName from Override elements in [Content_Types].xml,
// in either attribute order.
var (
	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// extractDocx extracts paragraph text from .docx bytes. DOCX is a ZIP holding
// word/document.xml (OOXML); the main part is located through
// [Content_Types].xml with the conventional path as fallback. Non-empty
// paragraphs are kept in document order and joined by blank lines.
func extractDocx(content []byte, name string) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: %w", err)
	}

	var paragraphs []string
	for _, block := range wpBlock.FindAllString(string(docXML), -1) {
		nodes := wtTag.FindAllStringSubmatch(block, -1)
		if len(nodes) == 0 {
			continue
		}
		parts := make([]string, 0, len(nodes))
		for _, n := range nodes {
			parts = append(parts, n[1])
		}
		if p := strings.TrimSpace(strings.Join(parts, " ")); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	return &Result{
		Text: strings.Join(paragraphs, "\n\n"),
		Metadata: map[string]interface{}{
			"file_type":  "docx",
			"paragraphs": len(paragraphs),
			"file_name":  name,
		},
	}, nil
}

// findDocxMainDocumentPath locates the main document part from
// [Content_Types].xml. Returns "" when it cannot be determined.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil {
		return ""
	}
	content := string(data)
	if m := partNameRe.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := partNameRe2.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}

func readZipFile(zr *zip.Reader, path string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != path {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%s not found", path)
}
