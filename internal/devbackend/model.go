package devbackend

import (
	"time"

	"habit-gallery/internal/works"
)

// Work is a stored submission. Image keys point into the object store.
type Work struct {
	ID            string
	Author        string
	CurrentHabits string
	Reflection    string
	ScorecardKey  string
	ComicKey      string
	CreatedAt     time.Time
}

// Record converts the work to its public wire shape. Stored keys are
// served from the backend root, so the key doubles as the URL path.
func (w Work) Record() works.Record {
	return works.Record{
		ID:                w.ID,
		Author:            w.Author,
		CurrentHabits:     w.CurrentHabits,
		Reflection:        w.Reflection,
		ScorecardImageURL: "/" + w.ScorecardKey,
		ComicImageURL:     "/" + w.ComicKey,
	}
}

// complete reports whether every field needed to list the work is present.
func (w Work) complete() bool {
	return w.ID != "" && w.ScorecardKey != "" && w.ComicKey != ""
}
