package placeholder

import (
	"net/url"
	"strings"
	"testing"
)

func decode(t *testing.T, uri string) string {
	t.Helper()
	if !strings.HasPrefix(uri, "data:image/svg+xml,") {
		t.Fatalf("unexpected prefix: %q", uri)
	}
	raw, err := url.QueryUnescape(strings.TrimPrefix(uri, "data:image/svg+xml,"))
	if err != nil {
		t.Fatalf("unescape: %v", err)
	}
	return raw
}

func TestApplySetsSourceAndAlt(t *testing.T) {
	called := false
	img := &Image{Src: "/uploads/a.png", Alt: "Habit scorecard", Attached: true, Clickable: true, OnError: func() { called = true }}

	Apply(img, "preview failed to load")

	if img.OnError != nil {
		t.Fatalf("expected error hook to be cleared")
	}
	if called {
		t.Fatalf("hook must not be invoked")
	}
	if img.Alt != "preview failed to load" {
		t.Fatalf("unexpected alt: %q", img.Alt)
	}
	if !img.Failed || img.Clickable {
		t.Fatalf("failed image must not stay clickable")
	}
	svg := decode(t, img.Src)
	if !strings.Contains(svg, "width='150'") {
		t.Fatalf("expected default size: %s", svg)
	}
	if !strings.Contains(svg, "font-size='14px'") {
		t.Fatalf("expected large font: %s", svg)
	}
	if !strings.Contains(svg, "preview failed to load") {
		t.Fatalf("expected context text: %s", svg)
	}
}

func TestApplyDefaultContextAndSizes(t *testing.T) {
	mascot := &Image{ID: MascotID, PlaceholderSize: 300, Attached: true}
	Apply(mascot, "")
	if mascot.Alt != DefaultContext {
		t.Fatalf("unexpected alt: %q", mascot.Alt)
	}
	if !strings.Contains(decode(t, mascot.Src), "width='80'") {
		t.Fatalf("mascot should use fixed size")
	}

	small := &Image{PlaceholderSize: 40, Attached: true}
	Apply(small, "x")
	svg := decode(t, small.Src)
	if !strings.Contains(svg, "width='40'") || !strings.Contains(svg, "font-size='10px'") {
		t.Fatalf("unexpected small svg: %s", svg)
	}
}

func TestApplyDetachedOnlyUpdatesAlt(t *testing.T) {
	img := &Image{Src: "/uploads/a.png", Attached: false}
	Apply(img, "gone")
	if img.Src != "/uploads/a.png" {
		t.Fatalf("detached image source must not change: %q", img.Src)
	}
	if img.Alt != "gone" {
		t.Fatalf("unexpected alt: %q", img.Alt)
	}
}

func TestApplyNilIsNoop(t *testing.T) {
	Apply(nil, "ignored")
}

func TestDataURISanitizesContext(t *testing.T) {
	svg := decode(t, DataURI(100, "<script>alert(1)</script>"))
	if strings.Contains(svg, "<script>") {
		t.Fatalf("context must be escaped: %s", svg)
	}
	if !strings.Contains(svg, "&lt;script&gt;") {
		t.Fatalf("expected escaped context: %s", svg)
	}
}
