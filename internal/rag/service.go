// Package rag orchestrates the retrieval pipeline: document ingest, grounded
// question answering, and the thread bookkeeping around them.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrilab/agrichat/internal/docid"
	"github.com/agrilab/agrichat/internal/extract"
	"github.com/agrilab/agrichat/internal/llm"
	"github.com/agrilab/agrichat/internal/models"
	"github.com/agrilab/agrichat/internal/storage"
	"github.com/agrilab/agrichat/internal/vector"
	"github.com/agrilab/agrichat/pkg/utils"
)

// Defaults for the retrieval tunables.
const (
	DefaultTopK           = 3
	DefaultHistoryWindow  = 6
	DefaultMaxUploadBytes = 50 << 20
	searchSnippetChars    = 300
)

// Options tunes the retrieval pipeline. Zero values take the defaults.
type Options struct {
	// TopK caps how many search hits ground a reply.
	TopK int
	// HistoryWindow caps how many past messages enter the prompt.
	HistoryWindow int
	// MaxUploadBytes caps accepted upload size.
	MaxUploadBytes int64
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = DefaultHistoryWindow
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return o
}

// Service wires the extractor, the similarity index, the store, and the
// completion backend into the upload and ask flows.
type Service struct {
	store     storage.Store
	index     vector.Index
	extractor *extract.Extractor
	completer llm.Completer
	logger    *zap.Logger
	opts      Options
}

// NewService creates the orchestrator.
func NewService(store storage.Store, index vector.Index, extractor *extract.Extractor, completer llm.Completer, opts Options, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		index:     index,
		extractor: extractor,
		completer: completer,
		logger:    logger,
		opts:      opts.withDefaults(),
	}
}

// NewThread mints a fresh thread id. Threads have no stored representation,
// so this is purely an id allocation.
func (s *Service) NewThread() string {
	return uuid.NewString()
}

// Upload ingests one document: validate, extract, persist, index, and
// optionally link to a thread. Any failure leaves no partial state behind
// except a saved-but-unindexed document when indexing itself fails, which is
// reported as an error.
func (s *Service) Upload(ctx context.Context, content []byte, filename, threadID string) (*models.UploadResult, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty file: %s", filename)
	}
	if int64(len(content)) > s.opts.MaxUploadBytes {
		return nil, fmt.Errorf("file too large: %d bytes (limit %d)", len(content), s.opts.MaxUploadBytes)
	}
	ft, ok := extract.Format(filename)
	if !ok {
		return nil, fmt.Errorf("unsupported file format: %s", filename)
	}

	res, err := s.extractor.Extract(content, filename)
	if err != nil {
		return nil, fmt.Errorf("extraction failed for %s: %w", filename, err)
	}

	id := docid.New(content, time.Now())
	doc := &models.Document{
		DocID:       id,
		Filename:    filename,
		FileType:    ft,
		FileSize:    int64(len(content)),
		ContentText: res.Text,
		Metadata:    res.Metadata,
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	if err := s.index.Add(id, res.Text, res.Metadata); err != nil {
		return nil, fmt.Errorf("failed to index document: %w", err)
	}
	if threadID != "" {
		if err := s.store.LinkDocument(ctx, threadID, id); err != nil {
			return nil, fmt.Errorf("failed to link document to thread: %w", err)
		}
	}

	s.logger.Info("document ingested",
		zap.String("doc_id", id),
		zap.String("filename", filename),
		zap.String("file_type", string(ft)),
		zap.Int("text_length", len(res.Text)),
		zap.String("thread_id", threadID))

	return &models.UploadResult{
		DocID:      id,
		Filename:   filename,
		FileType:   ft,
		TextLength: len(res.Text),
		Metadata:   res.Metadata,
	}, nil
}

// Ask answers an utterance in the context of a thread. It never returns an
// error: every failure, from storage outages to completion timeouts, degrades
// into the reply text so the caller always gets an Answer.
func (s *Service) Ask(ctx context.Context, threadID, utterance string) (answer *models.Answer) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ask pipeline panicked", zap.Any("panic", r), zap.String("thread_id", threadID))
			answer = &models.Answer{Reply: fmt.Sprintf("I encountered an error: %v", r)}
		}
	}()

	threadDocs, err := s.store.ThreadDocuments(ctx, threadID)
	if err != nil {
		s.logger.Error("failed to load thread documents", zap.Error(err), zap.String("thread_id", threadID))
		return &models.Answer{Reply: fmt.Sprintf("I encountered an error: %v", err)}
	}

	hits := s.index.Search(utterance, s.opts.TopK)

	history, err := s.store.History(ctx, threadID)
	if err != nil {
		s.logger.Error("failed to load history", zap.Error(err), zap.String("thread_id", threadID))
		return &models.Answer{Reply: fmt.Sprintf("I encountered an error: %v", err)}
	}
	if len(history) > s.opts.HistoryWindow {
		history = history[len(history)-s.opts.HistoryWindow:]
	}
	turns := append(history, models.Message{
		ThreadID: threadID,
		Role:     models.RoleUser,
		Content:  utterance,
	})

	snippets := make([]llm.Snippet, 0, len(hits))
	for _, hit := range hits {
		snippets = append(snippets, llm.Snippet{
			Filename:   indexedFilename(hit.Document),
			Content:    hit.Document.Text,
			Similarity: hit.Similarity,
		})
	}

	reply, err := s.completer.Complete(ctx, turns, snippets, threadDocs)
	if err != nil {
		s.logger.Error("completion failed", zap.Error(err), zap.String("thread_id", threadID))
		reply = fmt.Sprintf("Error communicating with AI service: %v", err)
	}

	// The user's turn is persisted even when the assistant side degrades, so
	// the thread history stays continuous.
	if err := s.store.SaveMessage(ctx, threadID, models.RoleUser, utterance); err != nil {
		s.logger.Error("failed to save user message", zap.Error(err), zap.String("thread_id", threadID))
	}
	if reply != "" {
		if err := s.store.SaveMessage(ctx, threadID, models.RoleAssistant, reply); err != nil {
			s.logger.Error("failed to save assistant message", zap.Error(err), zap.String("thread_id", threadID))
		}
	}

	sources := models.Sources{}
	for _, doc := range threadDocs {
		sources.ThreadDocuments = append(sources.ThreadDocuments, doc.Filename)
	}
	for _, sn := range snippets {
		sources.Matches = append(sources.Matches, models.Match{Filename: sn.Filename, Similarity: sn.Similarity})
	}
	if trailer := sourcesTrailer(sources); trailer != "" {
		reply += trailer
	}

	return &models.Answer{Reply: reply, Sources: sources}
}

// sourcesTrailer renders the human-readable "sources used" block appended to
// replies, or "" when nothing was consulted.
func sourcesTrailer(sources models.Sources) string {
	if sources.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n")
	if len(sources.ThreadDocuments) > 0 {
		b.WriteString("\n**Documents in this conversation:**")
		for _, name := range sources.ThreadDocuments {
			b.WriteString(fmt.Sprintf("\n  - %s", name))
		}
	}
	if len(sources.Matches) > 0 {
		b.WriteString("\n**Most relevant content from:**")
		for _, m := range sources.Matches {
			b.WriteString(fmt.Sprintf("\n  - %s (relevance: %.2f)", m.Filename, m.Similarity))
		}
	}
	return b.String()
}

// SearchDocuments runs a corpus-wide similarity search and returns hits with
// short content previews.
func (s *Service) SearchDocuments(ctx context.Context, query string, topK int) []models.SearchHit {
	if topK <= 0 {
		topK = s.opts.TopK
	}
	results := s.index.Search(query, topK)
	hits := make([]models.SearchHit, 0, len(results))
	for _, r := range results {
		ft, _ := r.Document.Metadata["file_type"].(string)
		hits = append(hits, models.SearchHit{
			DocID:      r.Document.ID,
			Similarity: r.Similarity,
			Filename:   indexedFilename(r.Document),
			FileType:   models.FileType(ft),
			Snippet:    utils.Truncate(r.Document.Text, searchSnippetChars),
		})
	}
	return hits
}

// History returns the full message history of a thread, oldest first.
func (s *Service) History(ctx context.Context, threadID string) ([]models.Message, error) {
	return s.store.History(ctx, threadID)
}

// Threads lists all threads, most recently active first.
func (s *Service) Threads(ctx context.Context) ([]*models.ThreadSummary, error) {
	return s.store.Threads(ctx)
}

// Documents lists every stored document.
func (s *Service) Documents(ctx context.Context) ([]*models.DocumentInfo, error) {
	return s.store.AllDocuments(ctx)
}

// ThreadDocuments lists the documents linked to a thread.
func (s *Service) ThreadDocuments(ctx context.Context, threadID string) ([]*models.DocumentInfo, error) {
	return s.store.ThreadDocuments(ctx, threadID)
}

// LinkDocument associates an existing document with a thread. Linking an
// unknown document id fails; re-linking a known one does not.
func (s *Service) LinkDocument(ctx context.Context, threadID, docID string) error {
	doc, err := s.store.Document(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to look up document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", docID)
	}
	return s.store.LinkDocument(ctx, threadID, docID)
}

// DeleteThread removes a thread's messages and links. The second return
// reports whether the thread existed. Documents and index entries survive.
func (s *Service) DeleteThread(ctx context.Context, threadID string) (bool, error) {
	deleted, err := s.store.DeleteThread(ctx, threadID)
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// Stats returns system-wide counters from the store.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	return s.store.Stats(ctx)
}

// IndexedDocuments returns the similarity index corpus size.
func (s *Service) IndexedDocuments() int {
	return s.index.Size()
}

// indexedFilename pulls the display name out of index metadata.
func indexedFilename(doc *vector.IndexedDocument) string {
	if name, ok := doc.Metadata["file_name"].(string); ok && name != "" {
		return name
	}
	return "Unknown"
}
