package rag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/agrilab/agrichat/internal/extract"
	"github.com/agrilab/agrichat/internal/llm"
	"github.com/agrilab/agrichat/internal/models"
	"github.com/agrilab/agrichat/internal/storage"
	"github.com/agrilab/agrichat/internal/vector"
)

// fakeCompleter records what it was asked and returns a canned reply.
type fakeCompleter struct {
	reply string
	err   error

	lastTurns    []models.Message
	lastSnippets []llm.Snippet
	lastDocs     []*models.DocumentInfo
}

func (f *fakeCompleter) Complete(_ context.Context, turns []models.Message, snippets []llm.Snippet, docs []*models.DocumentInfo) (string, error) {
	f.lastTurns = turns
	f.lastSnippets = snippets
	f.lastDocs = docs
	return f.reply, f.err
}

func (f *fakeCompleter) Close() error { return nil }

func newTestService(t *testing.T, fake *fakeCompleter) (*Service, storage.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	index := vector.NewTFIDF(filepath.Join(dir, "index.gob"), 10000, zap.NewNop())
	svc := NewService(store, index, extract.NewExtractor(), fake, Options{}, zap.NewNop())
	return svc, store
}

func TestService_uploadThenAsk(t *testing.T) {
	fake := &fakeCompleter{reply: "the document discusses rainfall"}
	svc, _ := newTestService(t, fake)
	ctx := context.Background()
	threadID := svc.NewThread()

	result, err := svc.Upload(ctx, []byte("rainfall patterns in monsoon season"), "rain.txt", threadID)
	if err != nil {
		t.Fatal(err)
	}
	if result.FileType != models.FileTypeText || result.TextLength == 0 {
		t.Fatalf("unexpected upload result: %+v", result)
	}

	answer := svc.Ask(ctx, threadID, "what does the document say about rainfall?")
	if !strings.Contains(answer.Reply, "the document discusses rainfall") {
		t.Errorf("reply missing completion text: %q", answer.Reply)
	}

	// The thread document and the search hit both surface as sources.
	if len(answer.Sources.ThreadDocuments) != 1 || answer.Sources.ThreadDocuments[0] != "rain.txt" {
		t.Errorf("thread documents = %v", answer.Sources.ThreadDocuments)
	}
	if len(answer.Sources.Matches) == 0 {
		t.Fatal("expected at least one search match")
	}
	if answer.Sources.Matches[0].Filename != "rain.txt" {
		t.Errorf("match filename = %s", answer.Sources.Matches[0].Filename)
	}
	if answer.Sources.Matches[0].Similarity <= vector.MinSimilarity {
		t.Errorf("match similarity %f should clear the threshold", answer.Sources.Matches[0].Similarity)
	}
	if !strings.Contains(answer.Reply, "Documents in this conversation:") {
		t.Error("sources trailer missing from reply")
	}

	// Both turns of the exchange were persisted.
	history, err := svc.History(ctx, threadID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d messages, want 2", len(history))
	}
	if history[0].Role != models.RoleUser || history[1].Role != models.RoleAssistant {
		t.Errorf("history roles = %s, %s", history[0].Role, history[1].Role)
	}
}

func TestService_askEmptyCorpus(t *testing.T) {
	fake := &fakeCompleter{reply: "hello there"}
	svc, _ := newTestService(t, fake)
	ctx := context.Background()

	answer := svc.Ask(ctx, "t1", "anything at all")
	if !answer.Sources.Empty() {
		t.Errorf("sources should be empty: %+v", answer.Sources)
	}
	if strings.Contains(answer.Reply, "Documents in this conversation:") {
		t.Error("trailer should be absent without sources")
	}
	if len(fake.lastSnippets) != 0 || len(fake.lastDocs) != 0 {
		t.Error("completer should receive no document context")
	}
}

func TestService_historyWindowBounded(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	svc, _ := newTestService(t, fake)
	ctx := context.Background()

	// Ten exchanges leave 20 stored messages; the prompt must carry only the
	// last 6 plus the current utterance.
	for i := 0; i < 10; i++ {
		svc.Ask(ctx, "t1", "question")
	}
	svc.Ask(ctx, "t1", "current question")

	if len(fake.lastTurns) != DefaultHistoryWindow+1 {
		t.Fatalf("prompt carried %d turns, want %d", len(fake.lastTurns), DefaultHistoryWindow+1)
	}
	last := fake.lastTurns[len(fake.lastTurns)-1]
	if last.Role != models.RoleUser || last.Content != "current question" {
		t.Errorf("final turn = %s %q", last.Role, last.Content)
	}
}

func TestService_uploadEmptyFile(t *testing.T) {
	svc, store := newTestService(t, &fakeCompleter{})
	ctx := context.Background()

	if _, err := svc.Upload(ctx, nil, "empty.txt", "t1"); err == nil {
		t.Fatal("empty upload should fail")
	}
	docs, _ := store.AllDocuments(ctx)
	if len(docs) != 0 || svc.IndexedDocuments() != 0 {
		t.Error("failed upload must leave no state")
	}
}

func TestService_uploadOversize(t *testing.T) {
	fake := &fakeCompleter{}
	svc, _ := newTestService(t, fake)
	svc.opts.MaxUploadBytes = 10

	if _, err := svc.Upload(context.Background(), []byte("this is more than ten bytes"), "big.txt", ""); err == nil {
		t.Fatal("oversize upload should fail")
	}
}

func TestService_uploadUnsupportedFormat(t *testing.T) {
	svc, store := newTestService(t, &fakeCompleter{})
	ctx := context.Background()

	if _, err := svc.Upload(ctx, []byte("binary"), "archive.tar.gz", ""); err == nil {
		t.Fatal("unsupported format should fail")
	}
	docs, _ := store.AllDocuments(ctx)
	if len(docs) != 0 {
		t.Error("rejected upload must leave no state")
	}
}

func TestService_uploadExtractionFailure(t *testing.T) {
	svc, store := newTestService(t, &fakeCompleter{})
	ctx := context.Background()

	if _, err := svc.Upload(ctx, []byte("definitely not a pdf"), "broken.pdf", "t1"); err == nil {
		t.Fatal("corrupt document should fail extraction")
	}
	docs, _ := store.AllDocuments(ctx)
	if len(docs) != 0 || svc.IndexedDocuments() != 0 {
		t.Error("failed extraction must leave no state")
	}
	linked, _ := store.ThreadDocuments(ctx, "t1")
	if len(linked) != 0 {
		t.Error("failed extraction must not link anything")
	}
}

func TestService_askDegradedCompletion(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("deadline exceeded")}
	svc, _ := newTestService(t, fake)
	ctx := context.Background()

	answer := svc.Ask(ctx, "t1", "are you there?")
	if !strings.Contains(answer.Reply, "deadline exceeded") {
		t.Errorf("degraded reply should describe the failure: %q", answer.Reply)
	}

	// History continuity survives the failed completion.
	history, err := svc.History(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) == 0 || history[0].Role != models.RoleUser || history[0].Content != "are you there?" {
		t.Fatalf("user turn not persisted: %+v", history)
	}
}

func TestService_searchDocuments(t *testing.T) {
	svc, _ := newTestService(t, &fakeCompleter{})
	ctx := context.Background()

	if _, err := svc.Upload(ctx, []byte("rainfall patterns in monsoon season"), "rain.txt", ""); err != nil {
		t.Fatal(err)
	}
	long := strings.Repeat("soil drainage and irrigation schedules. ", 20)
	if _, err := svc.Upload(ctx, []byte(long), "soil.txt", ""); err != nil {
		t.Fatal(err)
	}

	hits := svc.SearchDocuments(ctx, "irrigation drainage", 5)
	if len(hits) == 0 {
		t.Fatal("expected a search hit")
	}
	if hits[0].Filename != "soil.txt" {
		t.Errorf("top hit = %s, want soil.txt", hits[0].Filename)
	}
	if len(hits[0].Snippet) > searchSnippetChars+len("...") {
		t.Errorf("snippet not truncated: %d chars", len(hits[0].Snippet))
	}
}

func TestService_linkUnknownDocument(t *testing.T) {
	svc, _ := newTestService(t, &fakeCompleter{})
	if err := svc.LinkDocument(context.Background(), "t1", "ghost"); err == nil {
		t.Fatal("linking an unknown document should fail")
	}
}

func TestService_linkExistingDocument(t *testing.T) {
	svc, _ := newTestService(t, &fakeCompleter{})
	ctx := context.Background()

	result, err := svc.Upload(ctx, []byte("harvest notes"), "notes.txt", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.LinkDocument(ctx, "t1", result.DocID); err != nil {
		t.Fatal(err)
	}
	linked, err := svc.ThreadDocuments(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(linked) != 1 || linked[0].DocID != result.DocID {
		t.Errorf("linked = %+v", linked)
	}
}

func TestService_deleteThread(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	svc, _ := newTestService(t, fake)
	ctx := context.Background()

	svc.Ask(ctx, "t1", "hello")
	existed, err := svc.DeleteThread(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if !existed {
		t.Error("thread should have existed")
	}
	existed, err = svc.DeleteThread(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if existed {
		t.Error("second delete should report a missing thread")
	}
}

func TestService_newThreadIDsUnique(t *testing.T) {
	svc, _ := newTestService(t, &fakeCompleter{})
	if svc.NewThread() == svc.NewThread() {
		t.Error("thread ids should be unique")
	}
}
