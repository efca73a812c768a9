package vector

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestIndex(t *testing.T) (*TFIDF, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.gob")
	return NewTFIDF(path, 10000, zap.NewNop()), path
}

func TestTFIDF_roundTrip(t *testing.T) {
	idx, _ := newTestIndex(t)
	text := "rainfall patterns in monsoon season affect crop yields"
	if err := idx.Add("doc1", text, nil); err != nil {
		t.Fatal(err)
	}
	if err := idx.Add("doc2", "tractor maintenance and fuel consumption", nil); err != nil {
		t.Fatal(err)
	}

	results := idx.Search(text, 5)
	if len(results) == 0 {
		t.Fatal("searching a document's own text should find it")
	}
	if results[0].Document.ID != "doc1" {
		t.Errorf("top hit = %s, want doc1", results[0].Document.ID)
	}
	if results[0].Similarity <= MinSimilarity {
		t.Errorf("similarity %f should clear the threshold", results[0].Similarity)
	}
}

func TestTFIDF_countInvariant(t *testing.T) {
	idx, _ := newTestIndex(t)
	texts := []string{
		"first document about irrigation",
		"second document about fertilizer",
		"third document about harvest timing",
	}
	for i, text := range texts {
		if err := idx.Add(string(rune('a'+i)), text, nil); err != nil {
			t.Fatal(err)
		}
		if idx.Size() != i+1 {
			t.Fatalf("after %d adds Size = %d", i+1, idx.Size())
		}
		if len(idx.matrix) != i+1 {
			t.Fatalf("after %d adds matrix has %d rows", i+1, len(idx.matrix))
		}
	}
	if len(idx.Documents()) != len(texts) {
		t.Errorf("Documents() = %d, want %d", len(idx.Documents()), len(texts))
	}
}

func TestTFIDF_emptyCorpusSearch(t *testing.T) {
	idx, _ := newTestIndex(t)
	if got := idx.Search("anything at all", 3); len(got) != 0 {
		t.Errorf("empty corpus should return no results, got %d", len(got))
	}
}

func TestTFIDF_thresholdFiltersUnrelated(t *testing.T) {
	idx, _ := newTestIndex(t)
	_ = idx.Add("a", "rainfall patterns in monsoon season", nil)
	_ = idx.Add("b", "quarterly accounting ledger balances", nil)

	results := idx.Search("rainfall monsoon", 5)
	for _, r := range results {
		if r.Document.ID == "b" {
			t.Errorf("unrelated document surfaced with similarity %f", r.Similarity)
		}
	}
}

func TestTFIDF_topKAndOrder(t *testing.T) {
	idx, _ := newTestIndex(t)
	_ = idx.Add("a", "rainfall rainfall rainfall", nil)
	_ = idx.Add("b", "rainfall and sunshine", nil)
	_ = idx.Add("c", "rainfall levels yearly", nil)

	results := idx.Search("rainfall", 2)
	if len(results) > 2 {
		t.Fatalf("topK not honored: %d results", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Error("results not in descending similarity order")
		}
	}
}

func TestTFIDF_snapshotReload(t *testing.T) {
	idx, path := newTestIndex(t)
	_ = idx.Add("doc1", "rainfall patterns in monsoon season", map[string]interface{}{"file_name": "rain.txt"})
	_ = idx.Add("doc2", "grain storage and pest control", nil)

	reloaded := NewTFIDF(path, 10000, zap.NewNop())
	if reloaded.Size() != 2 {
		t.Fatalf("reloaded Size = %d, want 2", reloaded.Size())
	}
	results := reloaded.Search("monsoon rainfall", 3)
	if len(results) == 0 || results[0].Document.ID != "doc1" {
		t.Fatalf("reloaded index search failed: %+v", results)
	}
	if results[0].Document.Metadata["file_name"] != "rain.txt" {
		t.Error("metadata lost across snapshot reload")
	}
}

func TestTFIDF_corruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")
	if err := os.WriteFile(path, []byte("not a gob snapshot"), 0600); err != nil {
		t.Fatal(err)
	}
	idx := NewTFIDF(path, 10000, zap.NewNop())
	if idx.Size() != 0 {
		t.Errorf("corrupt snapshot should start empty, Size = %d", idx.Size())
	}
	// The index must still be usable.
	if err := idx.Add("a", "fresh start after corrupt snapshot", nil); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Errorf("Size = %d after add", idx.Size())
	}
}

func TestTFIDF_noSnapshotPath(t *testing.T) {
	idx := NewTFIDF("", 10000, zap.NewNop())
	if err := idx.Add("a", "persistence disabled still indexes", nil); err != nil {
		t.Fatal(err)
	}
	if got := idx.Search("persistence indexes", 1); len(got) != 1 {
		t.Errorf("got %d results", len(got))
	}
}
