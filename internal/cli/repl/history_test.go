package repl

import (
	"path/filepath"
	"testing"
)

func TestHistoryAddAndGet(t *testing.T) {
	h := NewHistoryFile(filepath.Join(t.TempDir(), "history"))

	h.Add("get a")
	h.Add("set a 1")
	h.Add("info")

	if got := h.Get(0); got != "info" {
		t.Errorf("Get(0) = %q, want most recent", got)
	}
	if got := h.Get(2); got != "get a" {
		t.Errorf("Get(2) = %q, want oldest", got)
	}
	if got := h.Get(3); got != "" {
		t.Errorf("Get(3) = %q, want empty for out of range", got)
	}
	if got := h.Get(-1); got != "" {
		t.Errorf("Get(-1) = %q, want empty", got)
	}
}

func TestHistorySizeCap(t *testing.T) {
	h := NewHistoryFile(filepath.Join(t.TempDir(), "history"))
	h.maxSize = 3

	h.Add("one")
	h.Add("two")
	h.Add("three")
	h.Add("four")

	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	if got := h.Get(2); got != "two" {
		t.Errorf("oldest = %q, want eviction of the first entry", got)
	}
}

func TestHistorySaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history")

	h := NewHistoryFile(path)
	h.Add("get a")
	h.Add("ping")
	if err := h.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	h2 := NewHistoryFile(path)
	if err := h2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h2.Len() != 2 {
		t.Fatalf("loaded %d entries, want 2", h2.Len())
	}
	if got := h2.Get(0); got != "ping" {
		t.Errorf("Get(0) = %q, want \"ping\"", got)
	}
}

func TestHistoryLoadMissingFile(t *testing.T) {
	h := NewHistoryFile(filepath.Join(t.TempDir(), "absent"))
	if err := h.Load(); err != nil {
		t.Errorf("Load on missing file should be nil, got %v", err)
	}
}
