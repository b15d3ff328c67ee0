package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"habit-gallery/internal/audio"
	"habit-gallery/internal/backend"
	"habit-gallery/internal/render"
	"habit-gallery/internal/shared/schedule"
	"habit-gallery/internal/shared/telemetry"
	"habit-gallery/internal/works"
)

const defaultAutoplayDelay = 100 * time.Millisecond

// RecordLookup refreshes the active record at trigger time.
type RecordLookup interface {
	Find(id string) (works.Record, error)
}

// URLResolver turns server-relative audio URLs into absolute ones.
type URLResolver interface {
	ResolveURL(ref string) string
}

// Options wires a Controller. Only Transport is required.
type Options struct {
	Transport     Transport
	Renderer      render.Renderer
	Player        audio.Player
	Records       RecordLookup
	Resolver      URLResolver
	Scheduler     schedule.Scheduler
	Autoplay      bool
	AutoplayDelay time.Duration
}

// Controller drives analyze requests for one panel and owns its audio.
type Controller struct {
	transport     Transport
	renderer      render.Renderer
	player        audio.Player
	records       RecordLookup
	resolver      URLResolver
	scheduler     schedule.Scheduler
	autoplayDelay time.Duration

	mu        sync.Mutex
	view      View
	state     State
	record    works.Record
	hasRecord bool
	gen       uint64
	source    audio.Source
	autoplay  schedule.Timer
}

// New constructs an idle Controller.
func New(opts Options, view View) *Controller {
	if view == nil {
		view = nopView{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.Real{}
	}
	if opts.AutoplayDelay <= 0 {
		opts.AutoplayDelay = defaultAutoplayDelay
	}
	c := &Controller{
		transport:     opts.Transport,
		renderer:      render.OrPlain(opts.Renderer),
		player:        opts.Player,
		records:       opts.Records,
		resolver:      opts.Resolver,
		scheduler:     opts.Scheduler,
		autoplayDelay: opts.AutoplayDelay,
		view:          view,
	}
	c.state.Autoplay = opts.Autoplay
	c.state.Info = "Open a work to request an analysis."
	if c.player != nil {
		c.player.SetEvents(audio.Events{
			OnPlay:  c.onPlay,
			OnPause: c.onPause,
			OnError: c.onPlayerError,
		})
	}
	return c
}

// SetView replaces the view and renders the current state into it.
func (c *Controller) SetView(v View) {
	if v == nil {
		v = nopView{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
	c.view.RenderAnalysis(c.state)
}

// State returns a snapshot of the panel state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetRecord makes rec the active record after a full teardown.
func (c *Controller) SetRecord(rec works.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.record = rec
	c.hasRecord = true
	c.state.RecordID = rec.ID
	author := strings.TrimSpace(rec.Author)
	if author == "" {
		author = "anonymous"
	}
	c.state.Info = fmt.Sprintf("Ready to analyze the work by %s.", author)
	c.state.TriggerEnabled = true
	c.renderLocked()
}

// Reset tears everything down and forgets the active record.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.record = works.Record{}
	c.hasRecord = false
	c.state.RecordID = ""
	c.state.Info = "Open a work to request an analysis."
	c.state.TriggerEnabled = false
	c.renderLocked()
}

// SetAutoplay toggles automatic playback of newly received inline audio.
func (c *Controller) SetAutoplay(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Autoplay = on
	c.renderLocked()
}

// Trigger issues one analyze request for the active record. It blocks until
// the response is handled. A response that lands after Reset or SetRecord is
// discarded with ErrStale.
func (c *Controller) Trigger(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Phase == PhaseRequesting {
		id := c.state.RecordID
		c.mu.Unlock()
		telemetry.Warn("analysis.trigger.ignored", map[string]any{"reason": "in_flight", "work_id": id})
		return ErrInFlight
	}
	if !c.hasRecord {
		c.state.Error = msgNoRecord
		c.renderLocked()
		c.mu.Unlock()
		return ErrNoRecord
	}
	if c.records != nil {
		if fresh, err := c.records.Find(c.record.ID); err == nil {
			c.record = fresh
		}
	}
	rec := c.record
	if err := c.transport.Ready(rec); err != nil {
		c.state.Error = readinessMessage(err)
		c.renderLocked()
		c.mu.Unlock()
		telemetry.Warn("analysis.trigger.rejected", map[string]any{"work_id": rec.ID, "err": err})
		return err
	}

	c.gen++
	gen := c.gen
	c.state.Phase = PhaseRequesting
	c.state.TriggerEnabled = false
	c.state.Loading = true
	c.state.Result = ""
	c.state.Fallback = false
	c.state.Error = ""
	c.state.AudioNotice = nil
	c.teardownAudioLocked()
	c.renderLocked()
	c.mu.Unlock()

	start := time.Now()
	telemetry.Info("analysis.request.start", map[string]any{"work_id": rec.ID, "transport": c.transport.Name()})
	resp, reqErr := c.transport.Analyze(ctx, rec)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		telemetry.Info("analysis.request.stale", map[string]any{"work_id": rec.ID})
		return ErrStale
	}

	result := c.applyLocked(gen, resp, reqErr)
	c.state.Loading = false
	c.state.TriggerEnabled = c.hasRecord
	c.renderLocked()

	fields := map[string]any{
		"work_id":     rec.ID,
		"phase":       c.state.Phase.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if result != nil {
		fields["err"] = result
		telemetry.Warn("analysis.request.failed", fields)
	} else {
		telemetry.Info("analysis.request.complete", fields)
	}
	return result
}

func (c *Controller) applyLocked(gen uint64, resp backend.AnalyzeResponse, reqErr error) error {
	if reqErr != nil {
		var apiErr *backend.APIError
		switch {
		case errors.As(reqErr, &apiErr):
			return c.failLocked("Error: Analysis failed: "+apiErr.Reason(), reqErr)
		case errors.Is(reqErr, backend.ErrMalformedResponse):
			return c.failLocked("Error: "+msgGeneric, reqErr)
		default:
			return c.failLocked("Error: Could not reach the analysis service. ("+reqErr.Error()+")", reqErr)
		}
	}
	if !resp.Success || resp.Analysis == "" {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = msgGeneric
		}
		return c.failLocked("Error: "+msg, fmt.Errorf("%w: %s", ErrAnalysisFailed, msg))
	}

	out, err := c.renderer.Render(resp.Analysis)
	if err != nil {
		telemetry.Warn("analysis.render.fallback", map[string]any{"err": err})
		out = resp.Analysis
		c.state.Fallback = true
	}
	c.state.Result = out
	c.state.Phase = PhaseRendered

	switch {
	case resp.AudioDataBase64 != "":
		c.attachInlineAudioLocked(gen, resp.AudioDataBase64)
	case resp.AudioURL != "":
		c.attachRemoteAudioLocked(resp.AudioURL)
	case resp.AudioError != "":
		c.state.AudioNotice = &Notice{Level: LevelWarning, Text: "Audio generation failed: " + resp.AudioError}
	}
	return nil
}

func (c *Controller) failLocked(text string, err error) error {
	c.state.Phase = PhaseFailed
	c.state.Error = text
	if errors.Is(err, ErrAnalysisFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
}

func (c *Controller) attachInlineAudioLocked(gen uint64, encoded string) {
	data, err := audio.DecodeClip(encoded)
	if err != nil {
		c.state.AudioNotice = &Notice{Level: LevelError, Text: "Error processing audio data: " + err.Error()}
		c.state.PlayEnabled = false
		return
	}
	if c.player == nil {
		c.state.AudioNotice = &Notice{Level: LevelWarning, Text: "Narration received but no audio player is available."}
		return
	}
	src, err := audio.NewLocalSource(data)
	if err != nil {
		c.state.AudioNotice = &Notice{Level: LevelError, Text: "Error processing audio data: " + err.Error()}
		return
	}
	c.setSourceLocked(src)
	if c.state.Autoplay {
		c.autoplay = c.scheduler.AfterFunc(c.autoplayDelay, func() { c.runAutoplay(gen) })
	}
}

func (c *Controller) attachRemoteAudioLocked(ref string) {
	if c.player == nil {
		c.state.AudioNotice = &Notice{Level: LevelWarning, Text: "Narration received but no audio player is available."}
		return
	}
	if c.resolver != nil {
		ref = c.resolver.ResolveURL(ref)
	}
	c.setSourceLocked(audio.NewRemoteSource(ref))
}

func (c *Controller) setSourceLocked(src audio.Source) {
	if c.source != nil && c.player.Source() == c.source {
		c.player.Unload()
	}
	c.releaseSourceLocked()
	c.source = src
	c.state.PlayEnabled = true
	c.state.StopVisible = false
}

func (c *Controller) runAutoplay(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoplay = nil
	if gen != c.gen || c.source == nil {
		return
	}
	if err := c.playLocked(context.Background()); err != nil {
		c.state.AudioNotice = &Notice{Level: LevelWarning, Text: "Autoplay was blocked, press play to listen. (" + err.Error() + ")"}
		c.state.PlayEnabled = true
		c.renderLocked()
		telemetry.Warn("analysis.autoplay.rejected", map[string]any{"err": err})
	}
}

// Play starts the held audio, attaching it to the player first if needed.
func (c *Controller) Play(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.playLocked(ctx); err != nil {
		c.state.AudioNotice = &Notice{Level: LevelError, Text: "Could not play audio: " + err.Error()}
		c.state.PlayEnabled = c.source != nil
		c.state.StopVisible = false
		c.renderLocked()
		return err
	}
	return nil
}

func (c *Controller) playLocked(ctx context.Context) error {
	if c.player == nil {
		return audio.ErrNoPlayer
	}
	if c.source == nil {
		return audio.ErrNoSource
	}
	if c.player.Source() != c.source {
		if err := c.player.Load(c.source); err != nil {
			return err
		}
	}
	return c.player.Play(ctx)
}

// Stop pauses playback and rewinds to the start.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player == nil || c.player.Paused() {
		return
	}
	c.player.Pause()
	c.player.Rewind()
}

func (c *Controller) onPlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source == nil || c.player.Source() != c.source {
		return
	}
	c.state.PlayEnabled = false
	c.state.StopVisible = true
	c.renderLocked()
}

// onPause ignores events from a run that was replaced while its exit was
// in flight.
func (c *Controller) onPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source == nil || c.player.Source() != c.source || !c.player.Paused() {
		return
	}
	c.state.PlayEnabled = c.source != nil
	c.state.StopVisible = false
	c.renderLocked()
}

func (c *Controller) onPlayerError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source == nil {
		return
	}
	telemetry.Warn("analysis.audio.error", map[string]any{"err": err})
	c.teardownAudioLocked()
	c.state.AudioNotice = &Notice{Level: LevelError, Text: "Audio playback error, narration disabled."}
	c.renderLocked()
}

// teardownLocked returns the panel to Idle and invalidates in-flight requests.
func (c *Controller) teardownLocked() {
	c.gen++
	c.teardownAudioLocked()
	c.state.Phase = PhaseIdle
	c.state.Loading = false
	c.state.Result = ""
	c.state.Fallback = false
	c.state.Error = ""
	c.state.AudioNotice = nil
}

func (c *Controller) teardownAudioLocked() {
	if c.autoplay != nil {
		c.autoplay.Stop()
		c.autoplay = nil
	}
	if c.player != nil {
		if !c.player.Paused() {
			c.player.Pause()
			c.player.Rewind()
		}
		c.player.Unload()
	}
	c.releaseSourceLocked()
	c.state.PlayEnabled = false
	c.state.StopVisible = false
}

func (c *Controller) releaseSourceLocked() {
	if c.source == nil {
		return
	}
	if err := c.source.Release(); err != nil {
		telemetry.Warn("analysis.audio.release_failed", map[string]any{"err": err})
	}
	c.source = nil
}

func (c *Controller) renderLocked() {
	c.view.RenderAnalysis(c.state)
}
