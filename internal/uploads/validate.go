package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxAuthorRunes     = 50
	MaxHabitsRunes     = 500
	MaxReflectionRunes = 1000
	MaxFileBytes       = 16 << 20
)

var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/jpg":  {},
	"image/gif":  {},
}

// File is one selected image.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FileFromPath describes a file on disk, sniffing its content type.
func FileFromPath(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect type of %s: %w", path, err)
	}
	return &File{
		Name:        filepath.Base(path),
		ContentType: mt.String(),
		Size:        info.Size(),
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Form is the upload form as the user filled it in.
type Form struct {
	Author     string
	Habits     string
	Reflection string
	Scorecard  *File
	Comic      *File
}

func (f Form) trimmed() Form {
	f.Author = strings.TrimSpace(f.Author)
	f.Habits = strings.TrimSpace(f.Habits)
	f.Reflection = strings.TrimSpace(f.Reflection)
	return f
}

// Violations lists every validation failure of a form.
type Violations []string

func (v Violations) Error() string {
	return strings.Join(v, "; ")
}

// Validate checks every field and returns all violations, or nil.
func Validate(form Form) Violations {
	form = form.trimmed()
	var out Violations

	out = checkText(out, form.Author, MaxAuthorRunes, "Name is required", "Name is too long (max %d characters)")
	out = checkText(out, form.Habits, MaxHabitsRunes, "Current habits are required", "Habit description is too long (max %d characters)")
	out = checkText(out, form.Reflection, MaxReflectionRunes, "Reflection is required", "Reflection is too long (max %d characters)")

	if form.Scorecard == nil {
		out = append(out, "No habit scorecard image selected")
	}
	if form.Comic == nil {
		out = append(out, "No six-panel comic image selected")
	}
	out = checkFile(out, form.Scorecard, "Scorecard image")
	out = checkFile(out, form.Comic, "Comic image")

	if len(out) == 0 {
		return nil
	}
	return out
}

func checkText(out Violations, value string, limit int, missing, tooLong string) Violations {
	switch {
	case value == "":
		return append(out, missing)
	case utf8.RuneCountInString(value) > limit:
		return append(out, fmt.Sprintf(tooLong, limit))
	}
	return out
}

func checkFile(out Violations, f *File, label string) Violations {
	if f == nil {
		return out
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(f.ContentType, ";")[0]))
	if _, ok := allowedImageTypes[contentType]; !ok {
		out = append(out, label+" has an unsupported format (JPG, PNG, GIF only)")
	}
	if f.Size > MaxFileBytes {
		out = append(out, fmt.Sprintf("%s is too large (max %dMB)", label, MaxFileBytes>>20))
	}
	return out
}
