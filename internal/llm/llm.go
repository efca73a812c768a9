// Package llm defines the completion boundary: assembling grounded prompts
// from retrieval output and sending them to a language model.
package llm

import (
	"context"

	"github.com/agrilab/agrichat/internal/models"
)

// Snippet is one retrieval hit handed to the model as grounding context.
type Snippet struct {
	Filename   string
	Content    string
	Similarity float64
}

// Completer produces an assistant reply for a conversation turn.
//
// Implementations must not return an error for service-side failures such as
// timeouts or empty responses; those degrade into a descriptive reply so the
// conversation continues. An error is reserved for programmer mistakes.
type Completer interface {
	Complete(ctx context.Context, history []models.Message, snippets []Snippet, threadDocs []*models.DocumentInfo) (string, error)
	Close() error
}
