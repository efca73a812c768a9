// Package vector provides the lexical similarity index over the document corpus.
package vector

import "time"

// IndexedDocument is one corpus entry: the full extracted text of an
// uploaded document plus its metadata.
type IndexedDocument struct {
	ID       string
	Text     string
	Metadata map[string]interface{}
	AddedAt  time.Time
}

// Result is a single similarity hit.
type Result struct {
	Document   *IndexedDocument
	Similarity float64
}

// MinSimilarity is the score below which search hits are discarded.
const MinSimilarity = 0.1

// Index is the similarity search surface. The TF-IDF implementation rebuilds
// its whole vector space on every Add; the interface isolates callers from
// that so an incremental index could replace it without touching them.
type Index interface {
	// Add appends a document to the corpus and reindexes.
	Add(id, text string, metadata map[string]interface{}) error
	// Search returns up to topK documents ranked by descending similarity to
	// query, all scoring above MinSimilarity. An empty corpus or an internal
	// failure yields an empty slice, never an error.
	Search(query string, topK int) []Result
	// Documents returns the corpus in insertion order.
	Documents() []*IndexedDocument
	// Size returns the number of indexed documents.
	Size() int
	Close() error
}
