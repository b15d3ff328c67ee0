package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Canned is an offline Analyzer and Speaker for local development.
// It answers deterministically from the submitted text.
type Canned struct{}

// AnalyzeWork returns a Markdown commentary built from the work's text.
func (Canned) AnalyzeWork(ctx context.Context, input WorkInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	habits := strings.TrimSpace(input.Habits)
	if habits == "" {
		habits = "(not provided)"
	}
	reflection := strings.TrimSpace(input.Reflection)
	if reflection == "" {
		reflection = "(not provided)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Habit review for %s\n\n", input.authorOrDefault())
	b.WriteString("### What you wrote\n")
	fmt.Fprintf(&b, "- **Habits:** %s\n", habits)
	fmt.Fprintf(&b, "- **Reflection:** %s\n\n", reflection)
	b.WriteString("### What the pictures show\n")
	switch {
	case input.ScorecardDataURL != "" && input.ComicDataURL != "":
		b.WriteString("Your scorecard and comic were both received.\n")
	case input.ScorecardDataURL != "" || input.ComicDataURL != "":
		b.WriteString("Only one of your images was received.\n")
	default:
		b.WriteString("No images were received.\n")
	}
	b.WriteString("\n### Next steps\n")
	b.WriteString("1. Pick the smallest version of the habit and do it daily.\n")
	b.WriteString("2. Track it on the scorecard right after you finish.\n")
	b.WriteString("3. Revisit your reflection at the end of the week.\n")
	return b.String(), nil
}

// mp3SilentFrame is one MPEG-1 Layer III frame (128 kbit/s, 44.1 kHz) of silence.
var mp3SilentFrame = func() []byte {
	frame := make([]byte, 417)
	copy(frame, []byte{0xFF, 0xFB, 0x90, 0x64})
	return frame
}()

const maxCannedFrames = 200

// Synthesize returns silent MP3 audio whose length grows with the text.
func (Canned) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesize: empty text")
	}
	frames := utf8.RuneCountInString(text)/20 + 1
	if frames > maxCannedFrames {
		frames = maxCannedFrames
	}
	out := make([]byte, 0, frames*len(mp3SilentFrame))
	for i := 0; i < frames; i++ {
		out = append(out, mp3SilentFrame...)
	}
	return out, nil
}

var (
	_ Analyzer = Canned{}
	_ Speaker  = Canned{}
)
