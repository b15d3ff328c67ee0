package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"habit-gallery/internal/llm"
)

func useServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(h)
	oldURL := apiBaseURL
	apiBaseURL = server.URL
	t.Cleanup(func() {
		apiBaseURL = oldURL
		server.Close()
	})
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(Options{APIKey: "test-key", Model: "gpt-4.1"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient(Options{Model: "gpt-4.1"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected missing model error")
	}
}

func TestAnalyzeWorkSendsImagesAsParts(t *testing.T) {
	var mu sync.Mutex
	var lastPath, lastAuth string
	var lastBody map[string]any

	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		lastPath, lastAuth, lastBody = r.URL.Path, r.Header.Get("Authorization"), payload
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  ## Great work  "}}],"usage":{"total_tokens":12}}`))
	})

	out, err := newTestClient(t).AnalyzeWork(context.Background(), llm.WorkInput{
		Author:           "Mei",
		Habits:           "read",
		Reflection:       "ok",
		ScorecardDataURL: "data:image/png;base64,AAAA",
		ComicDataURL:     "data:image/png;base64,BBBB",
	})
	if err != nil {
		t.Fatalf("AnalyzeWork: %v", err)
	}
	if out != "## Great work" {
		t.Fatalf("unexpected analysis: %q", out)
	}

	mu.Lock()
	defer mu.Unlock()
	if lastPath != "/chat/completions" {
		t.Fatalf("unexpected path: %s", lastPath)
	}
	if lastAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header: %q", lastAuth)
	}
	if lastBody["max_tokens"] != float64(1000) {
		t.Fatalf("unexpected max_tokens: %v", lastBody["max_tokens"])
	}
	messages := lastBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(messages))
	}
	parts := messages[1].(map[string]any)["content"].([]any)
	if len(parts) != 3 {
		t.Fatalf("expected text plus two images, got %d parts", len(parts))
	}
	img := parts[2].(map[string]any)["image_url"].(map[string]any)
	if img["url"] != "data:image/png;base64,BBBB" {
		t.Fatalf("unexpected comic url: %v", img["url"])
	}
}

func TestAnalyzeWorkSurfacesHTTPStatus(t *testing.T) {
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	_, err := newTestClient(t).AnalyzeWork(context.Background(), llm.WorkInput{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "http status 503") || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAnalyzeWorkRejectsEmptyContent(t *testing.T) {
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  "}}]}`))
	})

	if _, err := newTestClient(t).AnalyzeWork(context.Background(), llm.WorkInput{}); err == nil {
		t.Fatalf("expected empty content error")
	}
}

func TestSynthesizeReturnsAudioBytes(t *testing.T) {
	var gotVoice string
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		var payload speechRequest
		_ = json.NewDecoder(r.Body).Decode(&payload)
		gotVoice = payload.Voice
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake-mp3-bytes"))
	})

	audio, err := newTestClient(t).Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "ID3fake-mp3-bytes" {
		t.Fatalf("unexpected audio: %q", audio)
	}
	if gotVoice != "alloy" {
		t.Fatalf("expected default voice, got %q", gotVoice)
	}
}
