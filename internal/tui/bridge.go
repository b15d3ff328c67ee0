package tui

import (
	"sync"

	"habit-gallery/internal/analysis"
	"habit-gallery/internal/app"
	"habit-gallery/internal/detail"
	"habit-gallery/internal/gallery"
	"habit-gallery/internal/uploads"
)

// snapshot is the last state every controller rendered.
type snapshot struct {
	Grid      gallery.GridState
	Slideshow gallery.SlideshowState
	Modal     detail.ModalState
	Lightbox  detail.LightboxState
	Analysis  analysis.State
	Upload    uploads.State
	Alert     string
	// FormResets counts ResetForm calls so the model can clear its inputs.
	FormResets int
}

// bridge implements every controller view. Controllers call it while holding
// their own locks, so it copies the state and pokes the program without
// blocking.
type bridge struct {
	mu     sync.Mutex
	snap   snapshot
	notify chan struct{}
}

func newBridge() *bridge {
	return &bridge{notify: make(chan struct{}, 1)}
}

func (b *bridge) views() app.Views {
	return app.Views{
		Grid:      b,
		Slideshow: b,
		Modal:     b,
		Lightbox:  b,
		Analysis:  b,
		Upload:    b,
		Alert:     b.alert,
	}
}

func (b *bridge) update(fn func(*snapshot)) {
	b.mu.Lock()
	fn(&b.snap)
	b.mu.Unlock()
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *bridge) snapshot() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

func (b *bridge) clearAlert() {
	b.update(func(s *snapshot) { s.Alert = "" })
}

func (b *bridge) RenderGrid(st gallery.GridState) {
	st.Cards = append([]gallery.Card(nil), st.Cards...)
	b.update(func(s *snapshot) { s.Grid = st })
}

func (b *bridge) RenderSlideshow(st gallery.SlideshowState) {
	st.Slides = append([]gallery.Slide(nil), st.Slides...)
	b.update(func(s *snapshot) { s.Slideshow = st })
}

func (b *bridge) RenderModal(st detail.ModalState) {
	b.update(func(s *snapshot) { s.Modal = st })
}

func (b *bridge) RenderLightbox(st detail.LightboxState) {
	b.update(func(s *snapshot) { s.Lightbox = st })
}

func (b *bridge) RenderAnalysis(st analysis.State) {
	b.update(func(s *snapshot) { s.Analysis = st })
}

func (b *bridge) RenderUpload(st uploads.State) {
	st.Violations = append(uploads.Violations(nil), st.Violations...)
	b.update(func(s *snapshot) { s.Upload = st })
}

func (b *bridge) ResetForm() {
	b.update(func(s *snapshot) { s.FormResets++ })
}

func (b *bridge) alert(msg string) {
	b.update(func(s *snapshot) { s.Alert = msg })
}
