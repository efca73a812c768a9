package extract

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// extractImage reads image dimensions without decoding pixels. No OCR is
// performed; the text channel carries only a placeholder, and needs_ocr
// flags that for downstream consumers.
func extractImage(content []byte, name string) (*Result, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &Result{
		Text: fmt.Sprintf("[IMAGE: %s - %s - %dx%d]", name, strings.ToUpper(format), cfg.Width, cfg.Height),
		Metadata: map[string]interface{}{
			"file_type": "image",
			"format":    format,
			"width":     cfg.Width,
			"height":    cfg.Height,
			"file_name": name,
			"needs_ocr": true,
		},
	}, nil
}
