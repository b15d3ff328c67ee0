package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"habit-gallery/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

type retryingAnalyzer struct {
	base  Analyzer
	delay time.Duration
}

// WithRetry retries a transiently failing analysis once.
func WithRetry(base Analyzer) Analyzer {
	if base == nil {
		return nil
	}
	return retryingAnalyzer{base: base, delay: retryBaseDelay}
}

func (r retryingAnalyzer) AnalyzeWork(ctx context.Context, input WorkInput) (string, error) {
	out, err := r.base.AnalyzeWork(ctx, input)
	if err == nil || !shouldRetry(err) {
		return out, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"attempt": 1,
		"error":   err.Error(),
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return r.base.AnalyzeWork(ctx, input)
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}
