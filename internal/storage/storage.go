// Package storage defines durable persistence for messages, documents, and
// thread-document links.
package storage

import (
	"context"

	"github.com/agrilab/agrichat/internal/models"
)

// Store is the persistence surface of the retrieval pipeline.
//
// Messages and links are append-only with no uniqueness constraints:
// duplicate sends create duplicate rows and re-linking creates duplicate
// associations (idempotency is the caller's concern). Documents upsert by
// doc id. Multi-step flows are not transactional across calls; each method
// is atomic on its own.
type Store interface {
	// SaveMessage appends one conversation turn.
	SaveMessage(ctx context.Context, threadID string, role models.Role, content string) error
	// SaveDocument inserts or replaces the document row keyed by DocID.
	SaveDocument(ctx context.Context, doc *models.Document) error
	// LinkDocument associates an existing document with a thread.
	LinkDocument(ctx context.Context, threadID, docID string) error

	// History returns all messages of a thread, oldest first.
	History(ctx context.Context, threadID string) ([]models.Message, error)
	// ThreadDocuments returns documents linked to a thread, most recently
	// linked first.
	ThreadDocuments(ctx context.Context, threadID string) ([]*models.DocumentInfo, error)
	// AllDocuments returns every stored document, newest upload first.
	AllDocuments(ctx context.Context) ([]*models.DocumentInfo, error)
	// Document returns the document with the given id, or nil when absent.
	Document(ctx context.Context, docID string) (*models.DocumentInfo, error)
	// Threads returns summaries of all threads that have messages, most
	// recently active first.
	Threads(ctx context.Context) ([]*models.ThreadSummary, error)

	// DeleteThread removes a thread's messages and links and returns how many
	// message rows were removed; 0 means the thread did not exist. Documents
	// themselves are never deleted.
	DeleteThread(ctx context.Context, threadID string) (int64, error)

	// Stats returns system-wide counters.
	Stats(ctx context.Context) (*models.Stats, error)

	Close() error
}
