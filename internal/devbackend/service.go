package devbackend

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"habit-gallery/internal/llm"
	"habit-gallery/internal/shared/config"
	"habit-gallery/internal/shared/metrics"
	"habit-gallery/internal/shared/storage/object"
	"habit-gallery/internal/shared/telemetry"
)

const (
	uploadsNamespace = "uploads"
	audioNamespace   = "audio_cache"

	// minAudioBytes matches the client's threshold for a usable clip.
	minAudioBytes = 100
)

// Service implements the gallery backend operations.
type Service struct {
	Repo     Repo
	Store    object.ObjectStore
	Analyzer llm.Analyzer
	Speaker  llm.Speaker

	now func() time.Time
}

// Image is an uploaded image file.
type Image struct {
	Ext  string
	Data io.Reader
}

// ShareInput is a validated upload.
type ShareInput struct {
	Author     string
	Habits     string
	Reflection string
	Scorecard  Image
	Comic      Image
}

// InlineInput mirrors the POST /analyze body.
type InlineInput struct {
	ScorecardBase64 string
	ComicBase64     string
	Author          string
	Habits          string
	Reflection      string
	GenerateAudio   bool
}

// InlineResult carries the analysis and either audio bytes or an audio error.
type InlineResult struct {
	Analysis    string
	AudioBase64 string
	AudioError  string
}

// WorkResult carries the analysis and, when narration was stored, its URL path.
type WorkResult struct {
	Analysis string
	AudioURL string
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// Share stores both images and records the work. Stored images are
// removed again when a later step fails.
func (s *Service) Share(ctx context.Context, in ShareInput) (Work, error) {
	var saved []string
	cleanup := func() {
		for _, key := range saved {
			if err := s.Store.Delete(context.Background(), key); err != nil {
				telemetry.Warn("upload.cleanup.failed", map[string]any{"key": key, "error": err})
			}
		}
	}

	scKey, _, _, err := s.Store.Save(ctx, uploadsNamespace, "scorecard."+in.Scorecard.Ext, in.Scorecard.Data)
	if err != nil {
		return Work{}, fmt.Errorf("save scorecard: %w", err)
	}
	saved = append(saved, scKey)

	cmKey, _, _, err := s.Store.Save(ctx, uploadsNamespace, "comic."+in.Comic.Ext, in.Comic.Data)
	if err != nil {
		cleanup()
		return Work{}, fmt.Errorf("save comic: %w", err)
	}
	saved = append(saved, cmKey)

	work := Work{
		ID:            uuid.NewString(),
		Author:        strings.TrimSpace(in.Author),
		CurrentHabits: strings.TrimSpace(in.Habits),
		Reflection:    strings.TrimSpace(in.Reflection),
		ScorecardKey:  scKey,
		ComicKey:      cmKey,
		CreatedAt:     s.clock(),
	}
	if err := s.Repo.Create(ctx, work); err != nil {
		cleanup()
		return Work{}, fmt.Errorf("create work: %w", err)
	}
	telemetry.Info("upload.stored", map[string]any{
		"work_id":   work.ID,
		"scorecard": scKey,
		"comic":     cmKey,
	})
	return work, nil
}

// ListWorks returns every complete work in upload order.
func (s *Service) ListWorks(ctx context.Context) ([]Work, error) {
	all, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Work, 0, len(all))
	for _, w := range all {
		if !w.complete() {
			telemetry.Warn("works.skip.invalid", map[string]any{"work_id": w.ID})
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// Analyze runs an analysis on images supplied by the caller.
func (s *Service) Analyze(ctx context.Context, in InlineInput) (InlineResult, error) {
	if s.Analyzer == nil {
		return InlineResult{}, llm.ErrNotConfigured
	}
	scorecard, err := toDataURL(in.ScorecardBase64)
	if err != nil {
		return InlineResult{}, fmt.Errorf("scorecard: %w", err)
	}
	comic, err := toDataURL(in.ComicBase64)
	if err != nil {
		return InlineResult{}, fmt.Errorf("comic: %w", err)
	}

	text, err := s.analyze(ctx, config.AnalysisModeInline, llm.WorkInput{
		Author:           in.Author,
		Habits:           in.Habits,
		Reflection:       in.Reflection,
		ScorecardDataURL: scorecard,
		ComicDataURL:     comic,
	})
	if err != nil {
		return InlineResult{}, err
	}

	res := InlineResult{Analysis: text}
	if !in.GenerateAudio {
		metrics.IncAudio("skipped")
		return res, nil
	}
	audio, err := s.synthesize(ctx, text)
	if err != nil {
		res.AudioError = err.Error()
		return res, nil
	}
	res.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
	return res, nil
}

// AnalyzeWork analyzes a stored work and caches its narration as MP3.
func (s *Service) AnalyzeWork(ctx context.Context, id string) (WorkResult, error) {
	if s.Analyzer == nil {
		return WorkResult{}, llm.ErrNotConfigured
	}
	work, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return WorkResult{}, err
	}
	if work.ScorecardKey == "" || work.ComicKey == "" {
		return WorkResult{}, ErrImagesMissing
	}
	scorecard, err := s.storedDataURL(ctx, work.ScorecardKey)
	if err != nil {
		return WorkResult{}, err
	}
	comic, err := s.storedDataURL(ctx, work.ComicKey)
	if err != nil {
		return WorkResult{}, err
	}

	text, err := s.analyze(ctx, config.AnalysisModeByID, llm.WorkInput{
		Author:           work.Author,
		Habits:           work.CurrentHabits,
		Reflection:       work.Reflection,
		ScorecardDataURL: scorecard,
		ComicDataURL:     comic,
	})
	if err != nil {
		return WorkResult{}, err
	}

	res := WorkResult{Analysis: text}
	audio, err := s.synthesize(ctx, text)
	if err != nil {
		return res, nil
	}
	key := audioNamespace + "/" + uuid.NewString() + ".mp3"
	if _, err := s.Store.SaveWithKey(ctx, key, bytes.NewReader(audio)); err != nil {
		telemetry.Error("audio.store.failed", map[string]any{"work_id": id, "error": err})
		if delErr := s.Store.Delete(context.Background(), key); delErr != nil {
			telemetry.Warn("audio.cleanup.failed", map[string]any{"key": key, "error": delErr})
		}
		return res, nil
	}
	res.AudioURL = "/" + key
	return res, nil
}

func (s *Service) analyze(ctx context.Context, mode string, input llm.WorkInput) (string, error) {
	metrics.IncAnalysisStarted(mode)
	start := time.Now()
	text, err := s.Analyzer.AnalyzeWork(ctx, input)
	metrics.ObserveAnalysisDuration(time.Since(start))
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty analysis")
	}
	if err != nil {
		metrics.IncAnalysisFailed(mode)
		telemetry.Error("analysis.failed", map[string]any{"mode": mode, "error": err})
		return "", fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	metrics.IncAnalysisCompleted(mode)
	return text, nil
}

func (s *Service) synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.Speaker == nil {
		metrics.IncAudio("skipped")
		return nil, errors.New("speech synthesis not configured")
	}
	audio, err := s.Speaker.Synthesize(ctx, text)
	if err == nil && len(audio) <= minAudioBytes {
		err = fmt.Errorf("generated audio too small (%d bytes)", len(audio))
	}
	if err != nil {
		metrics.IncAudio("failed")
		telemetry.Warn("audio.synthesize.failed", map[string]any{"error": err})
		return nil, err
	}
	metrics.IncAudio("ok")
	return audio, nil
}

func (s *Service) storedDataURL(ctx context.Context, key string) (string, error) {
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, object.ErrInvalidKey) {
			return "", ErrImagesMissing
		}
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return encodeDataURL(data), nil
}

func encodeDataURL(data []byte) string {
	return "data:" + mimetype.Detect(data).String() + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// toDataURL accepts either a data URL or bare Base64 and returns a data URL.
func toDataURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidImage
	}
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 || !strings.Contains(raw[:comma], ";base64") {
			return "", ErrInvalidImage
		}
		payload = raw[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return "", ErrInvalidImage
	}
	if strings.HasPrefix(raw, "data:") {
		return raw, nil
	}
	return encodeDataURL(data), nil
}
