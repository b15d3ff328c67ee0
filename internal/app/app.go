package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"habit-gallery/internal/analysis"
	"habit-gallery/internal/audio"
	"habit-gallery/internal/backend"
	"habit-gallery/internal/detail"
	"habit-gallery/internal/gallery"
	"habit-gallery/internal/render"
	"habit-gallery/internal/shared/config"
	"habit-gallery/internal/shared/schedule"
	"habit-gallery/internal/shared/telemetry"
	"habit-gallery/internal/uploads"
	"habit-gallery/internal/works"
)

// Views are the front end's renderers. Any of them may be nil and set
// later through the controllers' SetView methods.
type Views struct {
	Grid      gallery.GridView
	Slideshow gallery.SlideshowView
	Modal     detail.ModalView
	Lightbox  detail.LightboxView
	Analysis  analysis.View
	Upload    uploads.View
	// Alert shows a blocking user-facing message.
	Alert func(msg string)
}

// Deps overrides collaborators that are otherwise built from config.
type Deps struct {
	HTTPClient *http.Client
	Scheduler  schedule.Scheduler
	Renderer   render.Renderer
	Player     audio.Player
	// NoPlayer skips external player detection when Player is nil.
	NoPlayer bool
}

// App holds one gallery page session.
type App struct {
	Config    config.Config
	Client    *backend.Client
	Store     *works.Store
	Renderer  render.Renderer
	Player    audio.Player
	Analysis  *analysis.Controller
	Lightbox  *detail.Lightbox
	Modal     *detail.Modal
	Slideshow *gallery.Slideshow
	Gallery   *gallery.Gallery
	Uploads   *uploads.Controller
}

// Build wires every controller of the page from cfg.
func Build(cfg config.Config, views Views, deps Deps) (*App, error) {
	client, err := backend.New(backend.Options{
		BaseURL:           cfg.BackendURL,
		HTTPClient:        deps.HTTPClient,
		Timeout:           cfg.HTTPTimeout,
		AnalyzeTimeout:    cfg.AnalyzeTimeout,
		RequestsPerSecond: cfg.RequestRPS,
	})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}

	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = schedule.Real{}
	}
	renderer := render.OrPlain(deps.Renderer)
	player, err := buildPlayer(cfg, deps)
	if err != nil {
		return nil, err
	}

	store := works.NewStore()
	a := &App{
		Config:   cfg,
		Client:   client,
		Store:    store,
		Renderer: renderer,
		Player:   player,
	}

	a.Analysis = analysis.New(analysis.Options{
		Transport: analysis.NewTransport(cfg.AnalysisMode, client),
		Renderer:  renderer,
		Player:    player,
		Records:   store,
		Resolver:  client,
		Scheduler: scheduler,
		Autoplay:  cfg.AutoplayAudio,
	}, views.Analysis)
	a.Lightbox = detail.NewLightbox(views.Lightbox)
	a.Modal = detail.NewModal(detail.ModalOptions{
		Store:    store,
		Fetcher:  client,
		Analysis: a.Analysis,
		Lightbox: a.Lightbox,
		View:     views.Modal,
		Alert:    views.Alert,
	})
	a.Slideshow = gallery.NewSlideshow(scheduler, cfg.SlideshowInterval, views.Slideshow)
	a.Gallery = gallery.New(gallery.Options{
		Store:     store,
		Lister:    client,
		Opener:    a.Modal,
		Slideshow: a.Slideshow,
		View:      views.Grid,
	})
	a.Uploads = uploads.New(uploads.Options{
		Uploader:  client,
		Scheduler: scheduler,
		View:      views.Upload,
		OnUploaded: func(ctx context.Context) {
			if err := a.Gallery.Load(ctx); err != nil {
				telemetry.Warn("app.reload.failed", map[string]any{"err": err})
			}
		},
	})

	telemetry.Info("app.build", map[string]any{
		"backend":       client.BaseURL(),
		"analysis_mode": cfg.AnalysisMode,
		"player":        player != nil,
	})
	return a, nil
}

func buildPlayer(cfg config.Config, deps Deps) (audio.Player, error) {
	if deps.Player != nil {
		return deps.Player, nil
	}
	if deps.NoPlayer {
		return nil, nil
	}
	p, err := audio.NewExecPlayer(cfg.AudioPlayer)
	if err != nil {
		if errors.Is(err, audio.ErrNoPlayer) {
			telemetry.Warn("app.player.unavailable", map[string]any{"err": err})
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Start performs the initial works load.
func (a *App) Start(ctx context.Context) error {
	return a.Gallery.Load(ctx)
}

// HandleKey routes a page-level key press. Escape closes every open overlay.
func (a *App) HandleKey(key string) bool {
	closedLightbox := a.Lightbox.HandleKey(key)
	closedModal := a.Modal.HandleKey(key)
	return closedLightbox || closedModal
}

// Shutdown stops timers and releases audio.
func (a *App) Shutdown() {
	a.Slideshow.Stop()
	a.Analysis.Reset()
	telemetry.Info("app.shutdown", nil)
}
