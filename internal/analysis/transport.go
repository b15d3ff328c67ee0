package analysis

import (
	"context"
	"strings"

	"habit-gallery/internal/backend"
	"habit-gallery/internal/shared/config"
	"habit-gallery/internal/works"
)

// Client is the part of the backend the transports need.
type Client interface {
	Analyze(ctx context.Context, req backend.AnalyzeRequest) (backend.AnalyzeResponse, error)
	AnalyzeWork(ctx context.Context, id string) (backend.AnalyzeResponse, error)
}

// Transport decides how a record reaches the analyze endpoint.
type Transport interface {
	Name() string
	// Ready reports whether rec carries what this transport needs.
	Ready(rec works.Record) error
	Analyze(ctx context.Context, rec works.Record) (backend.AnalyzeResponse, error)
}

// NewTransport picks the transport for a configured analysis mode.
func NewTransport(mode string, client Client) Transport {
	if mode == config.AnalysisModeByID {
		return ByIDTransport{Client: client}
	}
	return InlineTransport{Client: client}
}

// InlineTransport posts both cached image encodings to POST /analyze.
type InlineTransport struct {
	Client Client
}

func (InlineTransport) Name() string { return config.AnalysisModeInline }

func (InlineTransport) Ready(rec works.Record) error {
	if !rec.HasImages() {
		return ErrMissingImages
	}
	return nil
}

func (t InlineTransport) Analyze(ctx context.Context, rec works.Record) (backend.AnalyzeResponse, error) {
	return t.Client.Analyze(ctx, backend.AnalyzeRequest{
		ScorecardBase64: rec.ScorecardBase64,
		ComicBase64:     rec.ComicBase64,
		Author:          rec.Author,
		Habits:          rec.CurrentHabits,
		Reflection:      rec.Reflection,
		GenerateAudio:   true,
	})
}

// ByIDTransport lets the server look the work up through POST /analyze/{id}.
type ByIDTransport struct {
	Client Client
}

func (ByIDTransport) Name() string { return config.AnalysisModeByID }

func (ByIDTransport) Ready(rec works.Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return ErrMissingID
	}
	return nil
}

func (t ByIDTransport) Analyze(ctx context.Context, rec works.Record) (backend.AnalyzeResponse, error) {
	return t.Client.AnalyzeWork(ctx, rec.ID)
}
