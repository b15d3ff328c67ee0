package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"habit-gallery/internal/backend"
	"habit-gallery/internal/shared/placeholder"
	"habit-gallery/internal/shared/telemetry"
	"habit-gallery/internal/shared/util"
	"habit-gallery/internal/works"
)

const (
	previewRunes          = 80
	loadingMessage        = "Loading works..."
	emptyMessage          = "No works shared yet"
	previewFailureContext = "preview failed to load"
)

// Card is one grid entry.
type Card struct {
	ID           string
	Preview      placeholder.Image
	Lazy         bool
	Author       string
	HabitPreview string
	HabitsTitle  string
}

type GridState struct {
	Loading bool
	Cards   []Card
	// Message is the placeholder shown instead of cards.
	Message string
	Error   string
}

type GridView interface {
	RenderGrid(GridState)
}

// Lister fetches the works snapshot.
type Lister interface {
	ListWorks(ctx context.Context) ([]works.Record, error)
}

// Opener opens the detail view of a work.
type Opener interface {
	Open(ctx context.Context, id string) error
}

type Options struct {
	Store     *works.Store
	Lister    Lister
	Opener    Opener
	Slideshow *Slideshow
	View      GridView
}

// Gallery renders the works store as a grid of cards.
type Gallery struct {
	store     *works.Store
	lister    Lister
	opener    Opener
	slideshow *Slideshow

	mu    sync.Mutex
	view  GridView
	state GridState
}

func New(opts Options) *Gallery {
	return &Gallery{
		store:     opts.Store,
		lister:    opts.Lister,
		opener:    opts.Opener,
		slideshow: opts.Slideshow,
		view:      opts.View,
	}
}

func (g *Gallery) SetView(v GridView) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.view = v
	g.renderLocked()
}

// SetOpener wires the detail view after construction.
func (g *Gallery) SetOpener(o Opener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opener = o
}

// Load refreshes the store from the backend and re-renders the grid and the
// slideshow. A failed fetch leaves an empty store and an inline error.
func (g *Gallery) Load(ctx context.Context) error {
	g.mu.Lock()
	g.state = GridState{Loading: true, Message: loadingMessage}
	g.renderLocked()
	g.mu.Unlock()

	records, err := g.lister.ListWorks(ctx)
	if err != nil {
		telemetry.Error("gallery.load.failed", map[string]any{"err": err})
		if replaceErr := g.store.Replace(context.WithoutCancel(ctx), nil); replaceErr != nil {
			telemetry.Warn("gallery.store.reset_failed", map[string]any{"err": replaceErr})
		}
		g.mu.Lock()
		g.state = GridState{Error: fmt.Sprintf("Could not load works, please try again later. (%s)", failureReason(err))}
		g.renderLocked()
		g.mu.Unlock()
		g.rebuildSlideshow()
		return err
	}

	// The fetch already succeeded, so the grid is populated even if the
	// caller gave up meanwhile.
	if err := g.store.Replace(context.WithoutCancel(ctx), records); err != nil {
		return err
	}

	snapshot := g.store.Snapshot()
	cards := make([]Card, 0, len(snapshot))
	for i, rec := range snapshot {
		if missing := works.MissingField(rec); missing != "" {
			telemetry.Warn("gallery.card.skipped", map[string]any{"index": i, "id": rec.ID, "missing": missing})
			continue
		}
		cards = append(cards, newCard(rec))
	}

	g.mu.Lock()
	g.state = GridState{Cards: cards}
	if len(cards) == 0 {
		g.state.Message = emptyMessage
	}
	g.renderLocked()
	g.mu.Unlock()

	telemetry.Info("gallery.load.complete", map[string]any{"received": len(records), "rendered": len(cards)})
	g.rebuildSlideshow()
	return nil
}

func (g *Gallery) rebuildSlideshow() {
	if g.slideshow != nil {
		g.slideshow.Rebuild(g.store.Snapshot())
	}
}

func newCard(rec works.Record) Card {
	return Card{
		ID: rec.ID,
		Preview: placeholder.Image{
			Src:      util.EscapeHTML(rec.ScorecardImageURL),
			Alt:      util.EscapeHTML(rec.Author) + " habit scorecard",
			Attached: true,
		},
		Lazy:         true,
		Author:       util.EscapeHTML(rec.Author),
		HabitPreview: util.EscapeHTML(truncate(rec.CurrentHabits, previewRunes)),
		HabitsTitle:  util.EscapeHTML(rec.CurrentHabits),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func failureReason(err error) string {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("HTTP %d %s", apiErr.Status, apiErr.StatusText)
	case errors.Is(err, backend.ErrNotArray):
		return "unexpected response format"
	}
	return err.Error()
}

// Activate opens the card's work in the detail view.
func (g *Gallery) Activate(ctx context.Context, id string) error {
	g.mu.Lock()
	opener := g.opener
	g.mu.Unlock()
	if opener == nil {
		return fmt.Errorf("gallery: no opener for %s", id)
	}
	return opener.Open(ctx, id)
}

// HandleKey activates the card on Enter or Space. It reports whether the key
// was handled.
func (g *Gallery) HandleKey(ctx context.Context, id, key string) (bool, error) {
	switch key {
	case "enter", " ", "space":
		return true, g.Activate(ctx, id)
	}
	return false, nil
}

// PreviewFailed swaps a card preview for the fallback graphic.
func (g *Gallery) PreviewFailed(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.state.Cards {
		if g.state.Cards[i].ID == id {
			placeholder.Apply(&g.state.Cards[i].Preview, previewFailureContext)
			g.renderLocked()
			return
		}
	}
}

func (g *Gallery) State() GridState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.state
	st.Cards = append([]Card(nil), g.state.Cards...)
	return st
}

func (g *Gallery) renderLocked() {
	if g.view == nil {
		return
	}
	st := g.state
	st.Cards = append([]Card(nil), g.state.Cards...)
	g.view.RenderGrid(st)
}
