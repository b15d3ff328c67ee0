package placeholder

import (
	"fmt"
	"net/url"
	"strings"

	"habit-gallery/internal/shared/telemetry"
	"habit-gallery/internal/shared/util"
)

const (
	DefaultContext = "image failed to load"
	DefaultSize    = 150
	MascotSize     = 80
	MascotID       = "interactive-cat-img"
)

// Image is the view-model of a single rendered image element.
type Image struct {
	ID              string
	Src             string
	Alt             string
	PlaceholderSize int
	// Attached reports whether the element is still part of a live view.
	Attached bool
	// Clickable marks an image that loaded and may open the lightbox.
	Clickable bool
	// Failed is set once the fallback graphic replaced the source.
	Failed  bool
	OnError func()
}

// Apply replaces a failed image with an inline SVG carrying the context text.
// It is safe to call on detached images: only the alt text changes then.
func Apply(img *Image, context string) {
	if img == nil {
		telemetry.Error("placeholder.invalid_image", nil)
		return
	}
	if strings.TrimSpace(context) == "" {
		context = DefaultContext
	}
	telemetry.Warn("placeholder.applied", map[string]any{
		"context": context,
		"src":     img.Src,
		"alt":     img.Alt,
	})

	img.OnError = nil

	size := DefaultSize
	switch {
	case img.ID == MascotID:
		size = MascotSize
	case img.PlaceholderSize > 0:
		size = img.PlaceholderSize
	}

	if img.Attached {
		img.Src = DataURI(size, context)
		img.Failed = true
		img.Clickable = false
	}
	img.Alt = context
}

// DataURI renders the placeholder graphic as a data:image/svg+xml URI.
func DataURI(size int, context string) string {
	if size <= 0 {
		size = DefaultSize
	}
	fontSize := 10
	if size > 60 {
		fontSize = 14
	}
	svg := fmt.Sprintf(
		"<svg xmlns='http://www.w3.org/2000/svg' width='%[1]d' height='%[1]d' viewBox='0 0 %[1]d %[1]d' style='background-color: #eee;'>"+
			"<rect width='100%%' height='100%%' fill='#ddd'/>"+
			"<g font-family='sans-serif' font-size='%[2]dpx' fill='#777' text-anchor='middle'>"+
			"<text x='50%%' y='45%%' dominant-baseline='middle' font-size='%[3]gpx'>⚠️</text>"+
			"<text x='50%%' y='65%%' dominant-baseline='middle' style='font-weight:bold;'>%[4]s</text>"+
			"</g></svg>",
		size, fontSize, float64(size)*0.2, util.EscapeHTML(context),
	)
	return "data:image/svg+xml," + strings.ReplaceAll(url.QueryEscape(svg), "+", "%20")
}
