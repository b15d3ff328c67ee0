package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"habit-gallery/internal/uploads"
)

const (
	fieldAuthor = iota
	fieldHabits
	fieldReflection
	fieldScorecard
	fieldComic
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Name",
	"Current habits",
	"Reflection",
	"Scorecard image path",
	"Comic image path",
}

// uploadForm collects the share form in text inputs. Image fields take file
// paths.
type uploadForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
}

func newUploadForm() uploadForm {
	var f uploadForm
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = "› "
		in.Placeholder = fieldLabels[i]
		in.Width = 60
		f.inputs[i] = in
	}
	f.inputs[fieldAuthor].Focus()
	return f
}

func (f *uploadForm) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	return f.inputs[f.focus].Focus()
}

func (f *uploadForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *uploadForm) reset() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
		f.inputs[i].Blur()
	}
	f.focus = fieldAuthor
	f.inputs[fieldAuthor].Focus()
}

// form builds the controller form. Paths that cannot be read leave the image
// unset, which validation reports as not selected.
func (f *uploadForm) form() uploads.Form {
	return uploads.Form{
		Author:     f.inputs[fieldAuthor].Value(),
		Habits:     f.inputs[fieldHabits].Value(),
		Reflection: f.inputs[fieldReflection].Value(),
		Scorecard:  fileAt(f.inputs[fieldScorecard].Value()),
		Comic:      fileAt(f.inputs[fieldComic].Value()),
	}
}

func fileAt(path string) *uploads.File {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	file, err := uploads.FileFromPath(path)
	if err != nil {
		return nil
	}
	return file
}

func (f *uploadForm) view() string {
	var b strings.Builder
	for i := range f.inputs {
		label := labelStyle.Render(fieldLabels[i])
		if i == f.focus {
			label = cursorStyle.Render(fieldLabels[i])
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n\n")
	}
	return b.String()
}
