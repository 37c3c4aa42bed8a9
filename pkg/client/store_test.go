package client

import (
	"path/filepath"
	"testing"
)

func TestFileRunStore_RoundTrip(t *testing.T) {
	store := NewFileRunStore(filepath.Join(t.TempDir(), "active_run.json"))

	if _, ok := store.Get(); ok {
		t.Fatal("expected empty store before Set")
	}

	if err := store.Set("abc12345"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	jobID, ok := store.Get()
	if !ok || jobID != "abc12345" {
		t.Fatalf("expected abc12345, got %q (ok=%v)", jobID, ok)
	}

	// A second store on the same path must see the persisted handle.
	reopened := NewFileRunStore(store.path)
	jobID, ok = reopened.Get()
	if !ok || jobID != "abc12345" {
		t.Fatalf("expected persisted handle after reopen, got %q (ok=%v)", jobID, ok)
	}
}

func TestFileRunStore_ClearIsIdempotent(t *testing.T) {
	store := NewFileRunStore(filepath.Join(t.TempDir(), "active_run.json"))

	if err := store.Set("abc12345"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Fatal("expected empty store after Clear")
	}
	// Clearing an already-empty slot must not error.
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}
}

func TestFileRunStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_run.json")
	store := NewFileRunStore(path)

	if err := store.Set("abc12345"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	writeFile(t, path, "not json at all")
	if _, ok := store.Get(); ok {
		t.Fatal("expected corrupt file to read as empty")
	}
}

func TestMemoryRunStore(t *testing.T) {
	store := NewMemoryRunStore()

	if _, ok := store.Get(); ok {
		t.Fatal("expected empty store")
	}
	store.Set("xyz")
	if jobID, ok := store.Get(); !ok || jobID != "xyz" {
		t.Fatalf("expected xyz, got %q", jobID)
	}
	store.Clear()
	if _, ok := store.Get(); ok {
		t.Fatal("expected empty store after Clear")
	}
}
