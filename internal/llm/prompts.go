package llm

import (
	_ "embed"
	"strings"
	"text/template"
)

var (
	//go:embed prompts/system.txt
	systemPrompt string
	//go:embed prompts/work.txt
	workPrompt string

	workTemplate = template.Must(template.New("work").Parse(workPrompt))
)

// SystemPrompt returns the coach persona shared by every analysis.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// WorkPrompt renders the user prompt for a work.
func WorkPrompt(in WorkInput) (string, error) {
	var b strings.Builder
	err := workTemplate.Execute(&b, struct {
		Author     string
		Habits     string
		Reflection string
	}{
		Author:     in.authorOrDefault(),
		Habits:     strings.TrimSpace(in.Habits),
		Reflection: strings.TrimSpace(in.Reflection),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}
