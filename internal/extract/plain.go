package extract

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// textEncodings is the decode ladder for plain text, tried in priority order.
// UTF-8 is validated directly; UTF-16 requires a byte-order mark; the two
// single-byte encodings accept any input, so the ladder cannot fail on
// non-empty content.
var textEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"utf-16", unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)},
	{"latin-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
}

// extractPlain decodes text content with the first encoding that succeeds
// and records which one was used in the metadata.
func extractPlain(content []byte, name string) (*Result, error) {
	if utf8.Valid(content) {
		return plainResult(string(content), "utf-8", name), nil
	}
	for _, e := range textEncodings {
		decoded, err := e.enc.NewDecoder().Bytes(content)
		if err != nil {
			continue
		}
		return plainResult(string(decoded), e.name, name), nil
	}
	return nil, fmt.Errorf("could not decode text file")
}

func plainResult(text, encodingName, name string) *Result {
	return &Result{
		Text: text,
		Metadata: map[string]interface{}{
			"file_type": "text",
			"encoding":  encodingName,
			"file_name": name,
		},
	}
}
