package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"habit-gallery/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.POST("/analyze/:id", func(c *gin.Context) {
		c.Set("workId", c.Param("id"))
		c.Set("analysisMode", "by-id")
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	telemetry.SetLevel("info")
	t.Cleanup(func() { telemetry.SetOutput(&bytes.Buffer{}) })

	req := httptest.NewRequest(http.MethodPost, "/analyze/work-1", nil)
	req.Header.Set("X-Request-Id", "req-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatalf("expected log output")
	}
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "work_id", "analysis_mode", "duration_ms", "status", "route"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["request_id"] != "req-123" {
		t.Fatalf("unexpected request_id: %v", payload["request_id"])
	}
	if payload["work_id"] != "work-1" {
		t.Fatalf("unexpected work_id: %v", payload["work_id"])
	}
	if payload["route"] != "/analyze/:id" {
		t.Fatalf("unexpected route: %v", payload["route"])
	}
	if resp.Header().Get("X-Request-Id") != "req-123" {
		t.Fatalf("expected request id echoed")
	}
}

func TestLoggingQuietForHealthProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	var buf bytes.Buffer
	telemetry.SetOutput(&buf)
	telemetry.SetLevel("info")
	t.Cleanup(func() { telemetry.SetOutput(&bytes.Buffer{}) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if buf.Len() != 0 {
		t.Fatalf("expected no info log for health probe, got %s", buf.String())
	}
}
