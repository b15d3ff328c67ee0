package render

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns analysis Markdown into display text.
type Renderer interface {
	Render(markdown string) (string, error)
}

// OrPlain returns r, or Plain when r is nil.
func OrPlain(r Renderer) Renderer {
	if r == nil {
		return Plain{}
	}
	return r
}

// Plain returns the Markdown unchanged.
type Plain struct{}

func (Plain) Render(markdown string) (string, error) {
	return markdown, nil
}

// HTML renders GitHub-flavoured Markdown and sanitizes the result.
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewHTML() *HTML {
	return &HTML{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

func (h *HTML) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return h.policy.Sanitize(buf.String()), nil
}

// Terminal renders Markdown with ANSI styling for a terminal of the given width.
type Terminal struct {
	tr *glamour.TermRenderer
}

// NewTerminal builds a terminal renderer. style is a glamour standard style
// name such as "dark", "light" or "notty".
func NewTerminal(style string, width int) (*Terminal, error) {
	if style == "" {
		style = "dark"
	}
	if width <= 0 {
		width = 80
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("terminal renderer: %w", err)
	}
	return &Terminal{tr: tr}, nil
}

func (t *Terminal) Render(markdown string) (string, error) {
	return t.tr.Render(markdown)
}
