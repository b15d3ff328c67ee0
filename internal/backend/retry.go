package backend

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"habit-gallery/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// getWithRetry issues a GET and retries once on transient failures.
func (c *Client) getWithRetry(ctx context.Context, target string) (*http.Response, error) {
	resp, err := c.do(ctx, http.MethodGet, target, "", nil)
	if !shouldRetry(resp, err) {
		return resp, err
	}
	if resp != nil {
		resp.Body.Close()
	}
	fields := map[string]any{"url": target, "attempt": 1}
	if err != nil {
		fields["err"] = err
	} else {
		fields["status"] = resp.StatusCode
	}
	telemetry.Warn("backend.retry", fields)

	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.do(ctx, http.MethodGet, target, "", nil)
}

func shouldRetry(resp *http.Response, err error) bool {
	if err == nil {
		return resp != nil && resp.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) {
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
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "eof")
}
