package vector

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TFIDF is the Index implementation: an in-memory corpus with a fitted
// vectorizer and a dense vector matrix, snapshotted to disk after every
// insert. Every Add refits the vectorizer and recomputes all vectors, so
// insertion cost grows with corpus size; that trade keeps the index trivially
// consistent (vector count always equals document count).
//
// One RWMutex closes the add/search race: Add holds the write lock for the
// whole rebuild, so a reader never observes a half-rebuilt matrix.
type TFIDF struct {
	snapshotPath string
	logger       *zap.Logger

	mu         sync.RWMutex
	docs       []*IndexedDocument
	vectorizer *Vectorizer
	matrix     [][]float64
}

// snapshot is the on-disk form of the whole index state.
type snapshot struct {
	Docs       []*IndexedDocument
	Vocabulary map[string]int
	IDF        []float64
	Matrix     [][]float64
}

// NewTFIDF creates the index and loads the snapshot at snapshotPath if one
// exists. A missing or unreadable snapshot starts an empty index; it is
// logged, never fatal. An empty snapshotPath disables persistence.
func NewTFIDF(snapshotPath string, maxFeatures int, logger *zap.Logger) *TFIDF {
	t := &TFIDF{
		snapshotPath: snapshotPath,
		logger:       logger,
		vectorizer:   NewVectorizer(maxFeatures),
	}
	if err := t.load(); err != nil {
		logger.Warn("similarity index snapshot not loaded, starting empty",
			zap.String("path", snapshotPath), zap.Error(err))
		t.docs = nil
		t.matrix = nil
		t.vectorizer = NewVectorizer(maxFeatures)
	}
	return t
}

// Add appends the document, refits the vectorizer over the whole corpus,
// recomputes every vector, and writes a snapshot. A snapshot write failure is
// logged but does not fail the insert; the in-memory index stays consistent.
func (t *TFIDF) Add(id, text string, metadata map[string]interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.docs = append(t.docs, &IndexedDocument{
		ID:       id,
		Text:     text,
		Metadata: metadata,
		AddedAt:  time.Now(),
	})
	t.rebuildLocked()

	if err := t.saveLocked(); err != nil {
		t.logger.Warn("similarity index snapshot save failed",
			zap.String("path", t.snapshotPath), zap.Error(err))
	}
	return nil
}

// rebuildLocked refits the weighting model and recomputes the full matrix.
// Caller holds the write lock.
func (t *TFIDF) rebuildLocked() {
	corpus := make([]string, len(t.docs))
	for i, d := range t.docs {
		corpus[i] = d.Text
	}
	t.vectorizer.Fit(corpus)
	t.matrix = make([][]float64, len(corpus))
	for i, text := range corpus {
		t.matrix[i] = t.vectorizer.Transform(text)
	}
}

// Search ranks the corpus by cosine similarity to query. Hits at or below
// MinSimilarity are dropped, ties keep insertion order, and at most topK
// results return. Internal failures degrade to an empty result set.
func (t *TFIDF) Search(query string, topK int) (results []Result) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("similarity search failed", zap.Any("panic", r))
			results = nil
		}
	}()

	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.docs) == 0 || topK <= 0 {
		return nil
	}
	qv := t.vectorizer.Transform(query)
	results = make([]Result, 0, len(t.docs))
	for i, row := range t.matrix {
		if sim := dot(qv, row); sim > MinSimilarity {
			results = append(results, Result{Document: t.docs[i], Similarity: sim})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Documents returns the corpus in insertion order.
func (t *TFIDF) Documents() []*IndexedDocument {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*IndexedDocument, len(t.docs))
	copy(out, t.docs)
	return out
}

// Size returns the number of indexed documents.
func (t *TFIDF) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.docs)
}

// Close is a no-op; state is persisted on every Add.
func (t *TFIDF) Close() error {
	return nil
}

// saveLocked writes the snapshot atomically (temp file + rename).
// Caller holds the write lock.
func (t *TFIDF) saveLocked() error {
	if t.snapshotPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.snapshotPath), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := t.snapshotPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	snap := snapshot{
		Docs:       t.docs,
		Vocabulary: t.vectorizer.vocabulary,
		IDF:        t.vectorizer.idf,
		Matrix:     t.matrix,
	}
	if err := gob.NewEncoder(f).Encode(&snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot file: %w", err)
	}
	return os.Rename(tmp, t.snapshotPath)
}

// load replaces the index contents from the snapshot file. A missing file is
// not an error; a corrupt one is, and the caller resets to empty.
func (t *TFIDF) load() error {
	if t.snapshotPath == "" {
		return nil
	}
	f, err := os.Open(t.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if len(snap.Matrix) != len(snap.Docs) {
		return fmt.Errorf("snapshot inconsistent: %d vectors for %d documents",
			len(snap.Matrix), len(snap.Docs))
	}
	t.docs = snap.Docs
	t.matrix = snap.Matrix
	t.vectorizer.vocabulary = snap.Vocabulary
	t.vectorizer.idf = snap.IDF
	return nil
}
