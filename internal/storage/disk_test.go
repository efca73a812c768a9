package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	db := filepath.Join(dir, "agrichat.db")
	if err := os.WriteFile(db, []byte("12345"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("single file: got %d bytes, want 5", got)
	}

	// Directories are summed recursively.
	sub := filepath.Join(dir, "index")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "tfidf.gob"), []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(db, sub)
	if err != nil {
		t.Fatal(err)
	}
	if got != 8 {
		t.Errorf("file+dir: got %d bytes, want 8", got)
	}

	// A missing snapshot contributes nothing.
	got, err = DiskUsageBytes(db, filepath.Join(dir, "missing.gob"))
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("with missing path: got %d bytes, want 5", got)
	}

	// Empty path strings are ignored (persistence disabled).
	got, err = DiskUsageBytes("", db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("with empty path: got %d bytes, want 5", got)
	}
}
