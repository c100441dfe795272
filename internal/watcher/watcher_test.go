package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu       sync.Mutex
	ingested []string
	removed  []string
}

func (r *recorder) ingest(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingested = append(r.ingested, path)
}

func (r *recorder) remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
}

func (r *recorder) ingestedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ingested)
}

func (r *recorder) removedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.removed)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWatcherIngestsDroppedFile(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	w := New([]string{root}, []string{".txt"}, rec.ingest, rec.remove, WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)

	path := filepath.Join(root, "dropped.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool { return rec.ingestedCount() >= 1 })

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool { return rec.removedCount() >= 1 })
}

func TestWatcherFiltersExtensions(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	w := New([]string{root}, []string{".txt"}, rec.ingest, rec.remove, WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)

	if err := os.WriteFile(filepath.Join(root, "skip.bin"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool { return rec.ingestedCount() >= 1 })

	time.Sleep(200 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, p := range rec.ingested {
		if filepath.Ext(p) != ".txt" {
			t.Errorf("non-txt file ingested: %s", p)
		}
	}
}

func TestSyncExistingFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "already.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	rec := &recorder{}
	w := New([]string{root}, []string{".txt"}, rec.ingest, rec.remove)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)

	w.SyncExistingFiles()
	if rec.ingestedCount() != 1 {
		t.Errorf("expected 1 pre-existing file reported, got %d", rec.ingestedCount())
	}
}

func TestWatcherCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-yet-there")
	w := New([]string{root}, nil, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)

	if _, err := os.Stat(root); err != nil {
		t.Errorf("expected root to be created: %v", err)
	}
}
