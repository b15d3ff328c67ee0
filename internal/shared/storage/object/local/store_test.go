package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"habit-gallery/internal/shared/storage/object"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	key, size, mimeType, err := store.Save(ctx, "uploads", "scorecard.png", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ok, _ := regexp.MatchString(`^uploads/[0-9a-f-]{36}_scorecard\.png$`, key); !ok {
		t.Fatalf("unexpected key: %s", key)
	}
	if size != int64(len(pngHeader)) {
		t.Fatalf("unexpected size: %d", size)
	}
	if mimeType != "image/png" {
		t.Fatalf("unexpected mime: %s", mimeType)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, pngHeader) {
		t.Fatalf("content mismatch")
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestSaveWithKeyAndDelete(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	n, err := store.SaveWithKey(ctx, "audio_cache/abc.mp3", bytes.NewReader([]byte("mp3")))
	if err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if n != 3 {
		t.Fatalf("unexpected size: %d", n)
	}
	if err := store.Delete(ctx, "audio_cache/abc.mp3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, "audio_cache/abc.mp3"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
	if err := store.Delete(ctx, "audio_cache/abc.mp3"); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"../secret", "/etc/passwd", ".", "uploads/../../x"} {
		if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("Open(%q) expected ErrInvalidKey, got %v", key, err)
		}
	}
	if _, _, _, err := store.Save(ctx, "..", "a.png", bytes.NewReader(nil)); err == nil {
		t.Fatalf("expected namespace rejection")
	}
}

func TestCanceledContext(t *testing.T) {
	store := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.SaveWithKey(ctx, "a", bytes.NewReader(nil)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
