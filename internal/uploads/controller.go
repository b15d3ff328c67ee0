package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"habit-gallery/internal/backend"
	"habit-gallery/internal/shared/schedule"
	"habit-gallery/internal/shared/telemetry"
)

const defaultClearAfter = 5 * time.Second

var ErrSubmitting = errors.New("upload already in progress")

type Level int

const (
	LevelNone Level = iota
	LevelPending
	LevelSuccess
	LevelError
)

type State struct {
	SubmitEnabled bool
	Level         Level
	Message       string
	Violations    Violations
}

type View interface {
	RenderUpload(State)
	ResetForm()
}

// Uploader posts a work to the backend.
type Uploader interface {
	Upload(ctx context.Context, req backend.UploadRequest) (backend.UploadResponse, error)
}

type Options struct {
	Uploader   Uploader
	Scheduler  schedule.Scheduler
	ClearAfter time.Duration
	// OnUploaded runs after a successful upload, typically to reload works.
	OnUploaded func(ctx context.Context)
	View       View
}

// Controller validates and submits the upload form.
type Controller struct {
	uploader   Uploader
	scheduler  schedule.Scheduler
	clearAfter time.Duration

	mu         sync.Mutex
	view       View
	onUploaded func(ctx context.Context)
	state      State
	submitting bool
	msgGen     uint64
}

func New(opts Options) *Controller {
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.Real{}
	}
	if opts.ClearAfter <= 0 {
		opts.ClearAfter = defaultClearAfter
	}
	return &Controller{
		uploader:   opts.Uploader,
		scheduler:  opts.Scheduler,
		clearAfter: opts.ClearAfter,
		view:       opts.View,
		onUploaded: opts.OnUploaded,
		state:      State{SubmitEnabled: true},
	}
}

func (c *Controller) SetView(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
	c.renderLocked()
}

func (c *Controller) SetOnUploaded(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUploaded = fn
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit validates form and, when it passes, uploads it. Validation failures
// come back as Violations and nothing is sent.
func (c *Controller) Submit(ctx context.Context, form Form) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitting
	}
	form = form.trimmed()
	if violations := Validate(form); violations != nil {
		c.setMessageLocked(LevelError, "Please fix the following before sharing:")
		c.state.Violations = violations
		c.state.SubmitEnabled = true
		c.renderLocked()
		c.mu.Unlock()
		telemetry.Info("uploads.validation.failed", map[string]any{"violations": len(violations)})
		return violations
	}
	c.submitting = true
	c.state.SubmitEnabled = false
	c.state.Violations = nil
	c.setMessageLocked(LevelPending, "Sharing your work...")
	c.renderLocked()
	c.mu.Unlock()

	err := c.send(ctx, form)

	c.mu.Lock()
	c.submitting = false
	c.state.SubmitEnabled = true
	if err != nil {
		c.setMessageLocked(LevelError, failureMessage(err))
		c.renderLocked()
		c.mu.Unlock()
		telemetry.Warn("uploads.submit.failed", map[string]any{"err": err})
		return err
	}
	c.setMessageLocked(LevelSuccess, "Shared successfully!")
	gen := c.msgGen
	c.scheduler.AfterFunc(c.clearAfter, func() { c.clearSuccess(gen) })
	c.renderLocked()
	if c.view != nil {
		c.view.ResetForm()
	}
	onUploaded := c.onUploaded
	c.mu.Unlock()

	telemetry.Info("uploads.submit.complete", map[string]any{"author": form.Author})
	if onUploaded != nil {
		onUploaded(ctx)
	}
	return nil
}

func (c *Controller) send(ctx context.Context, form Form) error {
	scorecard, err := form.Scorecard.Open()
	if err != nil {
		return fmt.Errorf("open scorecard: %w", err)
	}
	defer scorecard.Close()
	comic, err := form.Comic.Open()
	if err != nil {
		return fmt.Errorf("open comic: %w", err)
	}
	defer comic.Close()

	resp, err := c.uploader.Upload(ctx, backend.UploadRequest{
		Author:     form.Author,
		Habits:     form.Habits,
		Reflection: form.Reflection,
		Scorecard:  uploadFile(form.Scorecard, scorecard),
		Comic:      uploadFile(form.Comic, comic),
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return &shareError{msg: resp.Error}
	}
	return nil
}

func uploadFile(f *File, r io.Reader) backend.UploadFile {
	return backend.UploadFile{Name: f.Name, ContentType: f.ContentType, Data: r}
}

// shareError is a success:false body on an OK response.
type shareError struct {
	msg string
}

func (e *shareError) Error() string { return e.msg }

func failureMessage(err error) string {
	var notJSON *backend.NotJSONError
	var apiErr *backend.APIError
	var share *shareError
	switch {
	case errors.As(err, &notJSON):
		return fmt.Sprintf("Upload failed: server did not return valid JSON (status %d)", notJSON.Status)
	case errors.As(err, &apiErr):
		return "Share failed: " + orUnknown(apiErr.Reason())
	case errors.As(err, &share):
		return "Share failed: " + orUnknown(share.msg)
	}
	return "Upload failed: " + err.Error()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown error"
	}
	return s
}

func (c *Controller) clearSuccess(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.msgGen || c.state.Level != LevelSuccess {
		return
	}
	c.setMessageLocked(LevelNone, "")
	c.renderLocked()
}

func (c *Controller) setMessageLocked(level Level, msg string) {
	c.msgGen++
	c.state.Level = level
	c.state.Message = msg
}

func (c *Controller) renderLocked() {
	if c.view != nil {
		c.view.RenderUpload(c.state)
	}
}
