package resume

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_persists_across_reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume", "positions.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Put("a.mp4", Record{OffsetSeconds: 42, DurationSeconds: 600, SavedAtEpochMs: 1}); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	rec, ok, err := reopened.Get("a.mp4")
	if err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
	if rec.OffsetSeconds != 42 || rec.DurationSeconds != 600 {
		t.Errorf("record changed across reopen: %+v", rec)
	}
}

func TestFileStore_delete_persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("a.mp4", Record{OffsetSeconds: 42}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("a.mp4"); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := reopened.Get("a.mp4"); ok {
		t.Error("deleted record survived reopen")
	}
}

func TestFileStore_corrupt_file_starts_empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("corrupt file should not fail open: %v", err)
	}
	if _, ok, _ := store.Get("a.mp4"); ok {
		t.Error("corrupt file should yield an empty store")
	}

	// The store is usable after the reset.
	if err := store.Put("a.mp4", Record{OffsetSeconds: 10}); err != nil {
		t.Fatal(err)
	}
	if rec, ok, _ := store.Get("a.mp4"); !ok || rec.OffsetSeconds != 10 {
		t.Errorf("store unusable after reset: %+v ok=%v", rec, ok)
	}
}
