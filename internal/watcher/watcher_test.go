package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func waitForPath(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", want)
	}
}

func TestWatcher_dropFile(t *testing.T) {
	dir := t.TempDir()
	dropped := make(chan string, 10)
	w := NewWatcher([]string{dir}, func(path string) { dropped <- path }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("harvest notes"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForPath(t, dropped, path)
}

func TestWatcher_ignoresUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	dropped := make(chan string, 10)
	w := NewWatcher([]string{dir}, func(path string) { dropped <- path }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "data.bin"), []byte{0, 1, 2}, 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case path := <-dropped:
		t.Errorf("unsupported file should not fire: %s", path)
	case <-time.After(800 * time.Millisecond):
	}
}

func TestWatcher_debouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	dropped := make(chan string, 10)
	w := NewWatcher([]string{dir}, func(path string) { dropped <- path }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "report.md")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("draft"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	waitForPath(t, dropped, path)

	select {
	case <-dropped:
		t.Error("rapid writes should collapse into one callback")
	case <-time.After(800 * time.Millisecond):
	}
}

func TestWatcher_createsMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "drop")
	w := NewWatcher([]string{root}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(root); err != nil {
		t.Errorf("root should have been created: %v", err)
	}
	if dirs := w.Directories(); len(dirs) != 1 || dirs[0] != root {
		t.Errorf("Directories() = %v", dirs)
	}
}

func TestWatcher_syncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.txt")
	if err := os.WriteFile(path, []byte("left behind"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.bin"), []byte{1}, 0644); err != nil {
		t.Fatal(err)
	}

	dropped := make(chan string, 10)
	w := NewWatcher([]string{dir}, func(p string) { dropped <- p }, zap.NewNop())
	w.SyncExistingFiles()

	waitForPath(t, dropped, path)
	select {
	case p := <-dropped:
		t.Errorf("unexpected extra drop: %s", p)
	default:
	}
}
