package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"habit-gallery/internal/llm"
	"habit-gallery/internal/shared/telemetry"
)

var apiBaseURL = "https://api.openai.com/v1"

const (
	defaultTimeout   = 120 * time.Second
	defaultMaxTokens = 1000
	defaultTTSModel  = "tts-1"
	defaultTTSVoice  = "alloy"
)

// Options configures the OpenAI client.
type Options struct {
	APIKey   string
	Model    string
	TTSModel string
	TTSVoice string
	Timeout  time.Duration
}

// Client implements llm.Analyzer with vision chat completions and
// llm.Speaker with the speech endpoint.
type Client struct {
	apiKey     string
	model      string
	ttsModel   string
	ttsVoice   string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ttsModel := strings.TrimSpace(opts.TTSModel)
	if ttsModel == "" {
		ttsModel = defaultTTSModel
	}
	ttsVoice := strings.TrimSpace(opts.TTSVoice)
	if ttsVoice == "" {
		ttsVoice = defaultTTSVoice
	}
	return &Client{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		ttsModel:   ttsModel,
		ttsVoice:   ttsVoice,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// AnalyzeWork sends the work's text and both images to the chat endpoint.
func (c *Client) AnalyzeWork(ctx context.Context, input llm.WorkInput) (string, error) {
	prompt, err := llm.WorkPrompt(input)
	if err != nil {
		return "", err
	}
	parts := []contentPart{{Type: "text", Text: prompt}}
	for _, u := range []string{input.ScorecardDataURL, input.ComicDataURL} {
		if u != "" {
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: u}})
		}
	}
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: llm.SystemPrompt()},
			{Role: "user", Content: parts},
		},
		MaxTokens: defaultMaxTokens,
	}

	body, err := c.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai response empty content")
	}
	logUsage(c.model, parsed)
	return content, nil
}

// Synthesize converts text to MP3 through the speech endpoint.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesize: empty text")
	}
	audio, err := c.post(ctx, "/audio/speech", speechRequest{
		Model:          c.ttsModel,
		Voice:          c.ttsVoice,
		Input:          text,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, err
	}
	telemetry.Debug("llm.speech.complete", map[string]any{
		"model": c.ttsModel,
		"voice": c.ttsVoice,
		"bytes": len(audio),
	})
	return audio, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var wrapped struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil {
			return nil, fmt.Errorf("openai http status %d: %s", resp.StatusCode, wrapped.Error.Message)
		}
		return nil, fmt.Errorf("openai http status %d", resp.StatusCode)
	}
	return body, nil
}

func logUsage(model string, resp chatResponse) {
	fields := map[string]any{"model": model}
	if resp.Usage != nil {
		fields["prompt_tokens"] = resp.Usage.PromptTokens
		fields["completion_tokens"] = resp.Usage.CompletionTokens
		fields["total_tokens"] = resp.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

var (
	_ llm.Analyzer = (*Client)(nil)
	_ llm.Speaker  = (*Client)(nil)
)
