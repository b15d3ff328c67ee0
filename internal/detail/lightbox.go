package detail

import (
	"strings"
	"sync"

	"habit-gallery/internal/shared/util"
)

const (
	defaultCaption = "Enlarged image"
	missingCaption = "Image could not be loaded"
)

// LightboxState is the enlarged-image overlay.
type LightboxState struct {
	Visible bool
	Src     string
	Caption string
}

type LightboxView interface {
	RenderLightbox(LightboxState)
}

// Lightbox shows one image enlarged.
type Lightbox struct {
	mu    sync.Mutex
	view  LightboxView
	state LightboxState
}

func NewLightbox(view LightboxView) *Lightbox {
	return &Lightbox{view: view}
}

func (l *Lightbox) SetView(v LightboxView) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.view = v
	l.renderLocked()
}

// Open shows the overlay. A missing url still opens it, blank with an error
// caption.
func (l *Lightbox) Open(url, caption string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Visible = true
	if strings.TrimSpace(url) == "" {
		l.state.Src = ""
		l.state.Caption = missingCaption
		l.renderLocked()
		return
	}
	if strings.TrimSpace(caption) == "" {
		caption = defaultCaption
	}
	l.state.Src = util.EscapeHTML(url)
	l.state.Caption = util.EscapeHTML(caption)
	l.renderLocked()
}

// Close hides the overlay and clears it so the next open never flashes a
// stale image.
func (l *Lightbox) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.Visible && l.state.Src == "" && l.state.Caption == "" {
		return
	}
	l.state = LightboxState{}
	l.renderLocked()
}

func (l *Lightbox) CloseButton() { l.Close() }

// Click closes the overlay when the click landed on the overlay itself.
func (l *Lightbox) Click(onOverlay bool) bool {
	if !onOverlay || !l.Visible() {
		return false
	}
	l.Close()
	return true
}

// HandleKey closes the overlay on Escape while it is visible.
func (l *Lightbox) HandleKey(key string) bool {
	if !isEscape(key) || !l.Visible() {
		return false
	}
	l.Close()
	return true
}

func (l *Lightbox) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Visible
}

func (l *Lightbox) State() LightboxState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lightbox) renderLocked() {
	if l.view != nil {
		l.view.RenderLightbox(l.state)
	}
}

func isEscape(key string) bool {
	switch strings.ToLower(key) {
	case "esc", "escape":
		return true
	}
	return false
}
