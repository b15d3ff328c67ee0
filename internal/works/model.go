package works

import "strings"

// Record is one gallery submission as returned by GET /works.
type Record struct {
	ID                string `json:"id"`
	Author            string `json:"author"`
	CurrentHabits     string `json:"currentHabits"`
	Reflection        string `json:"reflection"`
	ScorecardImageURL string `json:"scorecardImageUrl"`
	ComicImageURL     string `json:"comicImageUrl"`

	// Data URLs attached on first detail open and kept for the session.
	ScorecardBase64 string `json:"-"`
	ComicBase64     string `json:"-"`
}

// Valid reports whether the record carries every field a card needs.
func (r Record) Valid() bool {
	return MissingField(r) == ""
}

// MissingField names the first required field that is empty, or "".
func MissingField(r Record) string {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return "id"
	case strings.TrimSpace(r.ScorecardImageURL) == "":
		return "scorecardImageUrl"
	case strings.TrimSpace(r.Author) == "":
		return "author"
	case strings.TrimSpace(r.CurrentHabits) == "":
		return "currentHabits"
	case strings.TrimSpace(r.Reflection) == "":
		return "reflection"
	}
	return ""
}

// HasImages reports whether both Base64 encodings are cached.
func (r Record) HasImages() bool {
	return r.ScorecardBase64 != "" && r.ComicBase64 != ""
}
