package health

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStatusOK(t *testing.T) {
	s := NewService(t.TempDir(), "canned")
	st := s.Status()
	if st["ok"] != true || st["provider"] != "canned" {
		t.Fatalf("unexpected status %v", st)
	}
}

func TestStatusMissingDirIsOK(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "later"), "canned")
	if st := s.Status(); st["ok"] != true {
		t.Fatalf("missing store dir should be ok, got %v", st)
	}
}

func TestStatusStoreIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := NewService(path, "openai").Status()
	if st["ok"] != false || st["store"] != "not a directory" {
		t.Fatalf("unexpected status %v", st)
	}
}
