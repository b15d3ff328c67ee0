package gallery

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"habit-gallery/internal/shared/placeholder"
	"habit-gallery/internal/shared/schedule"
	"habit-gallery/internal/shared/util"
	"habit-gallery/internal/works"
)

const (
	MaxSlides               = 5
	DefaultSlideInterval    = 5 * time.Second
	slideshowPlaceholder    = "No shared images yet"
	slideshowFailureContext = "slideshow image failed to load"
)

type Slide struct {
	Image  placeholder.Image
	Active bool
}

type SlideshowState struct {
	Slides      []Slide
	Placeholder string
	Running     bool
}

type SlideshowView interface {
	RenderSlideshow(SlideshowState)
}

// Slideshow rotates the scorecards of the newest works.
type Slideshow struct {
	scheduler schedule.Scheduler
	interval  time.Duration

	mu     sync.Mutex
	view   SlideshowView
	slides []Slide
	active int
	timer  schedule.Timer
	gen    uint64
}

func NewSlideshow(scheduler schedule.Scheduler, interval time.Duration, view SlideshowView) *Slideshow {
	if scheduler == nil {
		scheduler = schedule.Real{}
	}
	if interval <= 0 {
		interval = DefaultSlideInterval
	}
	return &Slideshow{scheduler: scheduler, interval: interval, view: view}
}

func (s *Slideshow) SetView(v SlideshowView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
	s.renderLocked()
}

// Rebuild replaces the slides with the first records' scorecards and restarts
// rotation when there is more than one.
func (s *Slideshow) Rebuild(records []works.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	s.slides = nil
	for i, rec := range records {
		if i >= MaxSlides {
			break
		}
		url := strings.TrimSpace(rec.ScorecardImageURL)
		if url == "" {
			continue
		}
		s.slides = append(s.slides, Slide{Image: placeholder.Image{
			Src:      util.EscapeHTML(url),
			Alt:      fmt.Sprintf("Habit share %d", len(s.slides)+1),
			Attached: true,
		}})
	}
	s.active = 0
	if len(s.slides) > 0 {
		s.slides[0].Active = true
	}
	if len(s.slides) > 1 {
		s.scheduleLocked()
	}
	s.renderLocked()
}

// Stop cancels rotation. The current slide stays active.
func (s *Slideshow) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.renderLocked()
}

// SlideFailed swaps a slide for the fallback graphic.
func (s *Slideshow) SlideFailed(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.slides) {
		return
	}
	placeholder.Apply(&s.slides[index].Image, slideshowFailureContext)
	s.renderLocked()
}

func (s *Slideshow) State() SlideshowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Slideshow) scheduleLocked() {
	gen := s.gen
	s.timer = s.scheduler.AfterFunc(s.interval, func() { s.advance(gen) })
}

func (s *Slideshow) advance(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || len(s.slides) < 2 {
		return
	}
	s.slides[s.active].Active = false
	s.active = (s.active + 1) % len(s.slides)
	s.slides[s.active].Active = true
	s.scheduleLocked()
	s.renderLocked()
}

func (s *Slideshow) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Slideshow) stateLocked() SlideshowState {
	st := SlideshowState{
		Slides:  append([]Slide(nil), s.slides...),
		Running: s.timer != nil,
	}
	if len(s.slides) == 0 {
		st.Placeholder = slideshowPlaceholder
	}
	return st
}

func (s *Slideshow) renderLocked() {
	if s.view != nil {
		s.view.RenderSlideshow(s.stateLocked())
	}
}
