// Package docid derives document identifiers from upload content.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const prefix = "doc_"

// New returns a document id combining a content digest with the upload time.
// Re-uploading identical bytes therefore yields a new id and a fresh index
// entry; deduplication by content alone is deliberately not performed.
func New(content []byte, now time.Time) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("%s%s_%d", prefix, hex.EncodeToString(sum[:8]), now.Unix())
}
