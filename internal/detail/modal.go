package detail

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"habit-gallery/internal/shared/placeholder"
	"habit-gallery/internal/shared/telemetry"
	"habit-gallery/internal/shared/util"
	"habit-gallery/internal/works"
)

// Slot names one of the two detail images.
type Slot int

const (
	SlotScorecard Slot = iota
	SlotComic
)

const (
	altScorecard     = "Habit scorecard"
	altComic         = "Six-panel comic"
	fallbackAuthor   = "anonymous"
	fallbackNotGiven = "(not provided)"
)

// ModalState is the detail view of one work.
type ModalState struct {
	Visible      bool
	ScrollLocked bool
	WorkID       string
	Author       string
	Habits       string
	Reflection   string
	Scorecard    placeholder.Image
	Comic        placeholder.Image
}

type ModalView interface {
	RenderModal(ModalState)
}

// ImageFetcher downloads an image as a data URL.
type ImageFetcher interface {
	FetchDataURL(ctx context.Context, ref string) (string, error)
}

// AnalysisTarget is notified when the active record changes.
type AnalysisTarget interface {
	SetRecord(rec works.Record)
	Reset()
}

// ClickTarget describes where a click inside the modal landed.
type ClickTarget struct {
	// Backdrop is set only when the click hit the modal background layer
	// itself, not one of its descendants.
	Backdrop        bool
	InAnalysisPanel bool
}

type ModalOptions struct {
	Store    *works.Store
	Fetcher  ImageFetcher
	Analysis AnalysisTarget
	Lightbox *Lightbox
	View     ModalView
	// Alert shows a blocking user-facing message.
	Alert func(msg string)
}

// Modal shows one work's detail and arms the analysis panel for it.
type Modal struct {
	store    *works.Store
	fetcher  ImageFetcher
	analysis AnalysisTarget
	lightbox *Lightbox
	alert    func(string)

	mu     sync.Mutex
	view   ModalView
	state  ModalState
	record works.Record
	gen    uint64
}

func NewModal(opts ModalOptions) *Modal {
	alert := opts.Alert
	if alert == nil {
		alert = func(msg string) { telemetry.Warn("detail.alert", map[string]any{"message": msg}) }
	}
	return &Modal{
		store:    opts.Store,
		fetcher:  opts.Fetcher,
		analysis: opts.Analysis,
		lightbox: opts.Lightbox,
		alert:    alert,
		view:     opts.View,
	}
}

func (m *Modal) SetView(v ModalView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = v
	m.renderLocked()
}

// Open shows the work with the given id. Image encodings are fetched in
// parallel the first time a work is opened and cached on the store only
// when both succeed.
func (m *Modal) Open(ctx context.Context, id string) error {
	rec, err := m.store.Find(id)
	if err != nil {
		m.alert(alertUnableToShow)
		telemetry.Error("detail.open.not_found", map[string]any{"work_id": id})
		return fmt.Errorf("%w: %s", ErrWorkNotFound, id)
	}

	m.mu.Lock()
	if m.view == nil {
		m.mu.Unlock()
		m.alert(alertUnableToShow)
		telemetry.Error("detail.open.no_view", map[string]any{"work_id": id})
		return ErrNoView
	}
	m.gen++
	gen := m.gen
	m.record = rec
	m.state.WorkID = rec.ID
	m.state.Author = orFallback(rec.Author, fallbackAuthor)
	m.state.Habits = orFallback(rec.CurrentHabits, fallbackNotGiven)
	m.state.Reflection = orFallback(rec.Reflection, fallbackNotGiven)
	m.state.Scorecard = placeholder.Image{Src: util.EscapeHTML(rec.ScorecardImageURL), Alt: altScorecard, Attached: true}
	m.state.Comic = placeholder.Image{Src: util.EscapeHTML(rec.ComicImageURL), Alt: altComic, Attached: true}
	m.mu.Unlock()

	var scErr, cmErr error
	if !rec.HasImages() {
		var scorecard, comic string
		var g errgroup.Group
		g.Go(func() error {
			scorecard, scErr = m.fetcher.FetchDataURL(ctx, rec.ScorecardImageURL)
			return nil
		})
		g.Go(func() error {
			comic, cmErr = m.fetcher.FetchDataURL(ctx, rec.ComicImageURL)
			return nil
		})
		_ = g.Wait()

		if scErr == nil && cmErr == nil {
			if err := m.store.AttachImages(rec.ID, scorecard, comic); err != nil {
				telemetry.Warn("detail.prefetch.cache_failed", map[string]any{"work_id": rec.ID, "err": err})
			} else {
				rec.ScorecardBase64, rec.ComicBase64 = scorecard, comic
			}
		} else {
			telemetry.Warn("detail.prefetch.failed", map[string]any{
				"work_id":   rec.ID,
				"scorecard": errString(scErr),
				"comic":     errString(cmErr),
			})
		}
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return nil
	}
	m.record = rec
	m.settleLocked(&m.state.Scorecard, scErr)
	m.settleLocked(&m.state.Comic, cmErr)
	m.mu.Unlock()

	if m.analysis != nil {
		m.analysis.SetRecord(rec)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil
	}
	m.state.Visible = true
	m.state.ScrollLocked = true
	m.renderLocked()
	telemetry.Info("detail.open", map[string]any{"work_id": rec.ID, "cached_images": rec.HasImages()})
	return nil
}

func (m *Modal) settleLocked(img *placeholder.Image, err error) {
	if err != nil {
		placeholder.Apply(img, img.Alt+" failed to load")
		return
	}
	if !img.Failed {
		img.Clickable = true
	}
}

// ImageLoaded marks an image as loaded, making it open the lightbox on click.
func (m *Modal) ImageLoaded(slot Slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img := m.slotLocked(slot)
	if img == nil || img.Failed || !img.Attached {
		return
	}
	img.Clickable = true
	m.renderLocked()
}

// ImageFailed swaps the image for the fallback graphic.
func (m *Modal) ImageFailed(slot Slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img := m.slotLocked(slot)
	if img == nil || img.Failed {
		return
	}
	placeholder.Apply(img, img.Alt+" failed to load")
	m.renderLocked()
}

// ClickImage opens the lightbox for a loaded image. Failed images do nothing.
func (m *Modal) ClickImage(slot Slot) bool {
	m.mu.Lock()
	if !m.state.Visible {
		m.mu.Unlock()
		return false
	}
	img := m.slotLocked(slot)
	if img == nil || !img.Clickable || m.lightbox == nil {
		m.mu.Unlock()
		return false
	}
	url := m.record.ScorecardImageURL
	if slot == SlotComic {
		url = m.record.ComicImageURL
	}
	caption := img.Alt
	m.mu.Unlock()

	m.lightbox.Open(url, caption)
	return true
}

// Close hides the modal and tears the analysis panel down.
func (m *Modal) Close() {
	m.mu.Lock()
	if !m.state.Visible {
		m.mu.Unlock()
		return
	}
	m.gen++
	id := m.state.WorkID
	m.state = ModalState{}
	m.record = works.Record{}
	m.renderLocked()
	m.mu.Unlock()

	if m.analysis != nil {
		m.analysis.Reset()
	}
	telemetry.Info("detail.close", map[string]any{"work_id": id})
}

func (m *Modal) CloseButton() { m.Close() }

// Click closes the modal for clicks on the bare backdrop outside the
// analysis panel.
func (m *Modal) Click(target ClickTarget) bool {
	if !target.Backdrop || target.InAnalysisPanel || !m.Visible() {
		return false
	}
	m.Close()
	return true
}

// HandleKey closes the modal on Escape while it is visible.
func (m *Modal) HandleKey(key string) bool {
	if !isEscape(key) || !m.Visible() {
		return false
	}
	m.Close()
	return true
}

func (m *Modal) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Visible
}

func (m *Modal) State() ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Modal) slotLocked(slot Slot) *placeholder.Image {
	switch slot {
	case SlotScorecard:
		return &m.state.Scorecard
	case SlotComic:
		return &m.state.Comic
	}
	return nil
}

func (m *Modal) renderLocked() {
	if m.view != nil {
		m.view.RenderModal(m.state)
	}
}

func orFallback(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return util.EscapeHTML(s)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
