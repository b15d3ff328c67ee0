package llm

import (
	"context"
	"errors"
	"strings"
)

// Analyzer produces a Markdown commentary for a shared habit work.
type Analyzer interface {
	AnalyzeWork(ctx context.Context, input WorkInput) (string, error)
}

// Speaker turns analysis text into MP3 audio.
type Speaker interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// WorkInput captures what the analyzer sees of a work. Images are data URLs.
type WorkInput struct {
	Author           string
	Habits           string
	Reflection       string
	ScorecardDataURL string
	ComicDataURL     string
}

// ErrNotConfigured is returned when no provider is wired.
var ErrNotConfigured = errors.New("AI service not configured")

// DefaultAuthor is used in prompts when the work has no author.
const DefaultAuthor = "student"

func (in WorkInput) authorOrDefault() string {
	if a := strings.TrimSpace(in.Author); a != "" {
		return a
	}
	return DefaultAuthor
}
