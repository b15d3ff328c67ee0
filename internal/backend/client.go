package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/time/rate"

	"habit-gallery/internal/shared/telemetry"
	"habit-gallery/internal/works"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultAnalyzeTimeout = 120 * time.Second
	maxImageBytes         = 32 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Timeout        time.Duration
	AnalyzeTimeout time.Duration
	// RequestsPerSecond paces outgoing requests; zero or less disables pacing.
	RequestsPerSecond float64
}

// Client speaks the gallery backend contract.
type Client struct {
	base           *url.URL
	http           *http.Client
	limiter        *rate.Limiter
	timeout        time.Duration
	analyzeTimeout time.Duration
	retryDelay     time.Duration
	maxImage       int64
}

// New constructs a Client for the backend at opts.BaseURL.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("backend url: %w", ErrEmptyURL)
	}
	base, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", raw)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	analyzeTimeout := opts.AnalyzeTimeout
	if analyzeTimeout <= 0 {
		analyzeTimeout = defaultAnalyzeTimeout
	}
	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}

	return &Client{
		base:           base,
		http:           httpClient,
		limiter:        rate.NewLimiter(limit, burst),
		timeout:        timeout,
		analyzeTimeout: analyzeTimeout,
		retryDelay:     retryBaseDelay,
		maxImage:       maxImageBytes,
	}, nil
}

// BaseURL returns the backend root without a trailing slash.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.base.String(), "/")
}

// ResolveURL resolves a possibly relative reference against the backend root.
func (c *Client) ResolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return u.String()
	}
	return c.base.ResolveReference(u).String()
}

// ListWorks fetches GET /works. Entries that are not objects decode as empty
// records so that callers can count and skip them.
func (c *Client) ListWorks(ctx context.Context) ([]works.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.getWithRetry(ctx, c.ResolveURL("works"))
	if err != nil {
		return nil, fmt.Errorf("list works: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, StatusText: statusText(resp), Message: errorMessage(resp.Body)}
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("list works: %w", ErrNotArray)
	}
	if raw == nil {
		return nil, fmt.Errorf("list works: %w", ErrNotArray)
	}
	records := make([]works.Record, 0, len(raw))
	for i, item := range raw {
		var rec works.Record
		if err := json.Unmarshal(item, &rec); err != nil {
			telemetry.Warn("backend.works.bad_entry", map[string]any{"index": i, "err": err})
			rec = works.Record{}
		}
		records = append(records, rec)
	}
	return records, nil
}

// UploadFile is one image part of an upload.
type UploadFile struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// UploadRequest carries the multipart fields of POST /upload.
type UploadRequest struct {
	Author     string
	Habits     string
	Reflection string
	Scorecard  UploadFile
	Comic      UploadFile
}

// UploadResponse is the JSON body of POST /upload.
type UploadResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	WorkID  string `json:"work_id,omitempty"`
}

// Upload posts a new work. A non-JSON body yields *NotJSONError and a non-OK
// status yields *APIError; success:false on 200 is returned as-is.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := []struct{ name, value string }{
		{"author-name", req.Author},
		{"current-habits", req.Habits},
		{"reflection", req.Reflection},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return UploadResponse{}, fmt.Errorf("write field %s: %w", f.name, err)
		}
	}
	if err := writeFilePart(mw, "scorecard-image", req.Scorecard); err != nil {
		return UploadResponse{}, err
	}
	if err := writeFilePart(mw, "comic-image", req.Comic); err != nil {
		return UploadResponse{}, err
	}
	if err := mw.Close(); err != nil {
		return UploadResponse{}, fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.ResolveURL("upload"), mw.FormDataContentType(), &body)
	if err != nil {
		return UploadResponse{}, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UploadResponse{}, &NotJSONError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &APIError{Status: resp.StatusCode, StatusText: statusText(resp), Message: out.Error}
	}
	return out, nil
}

func writeFilePart(mw *multipart.Writer, field string, f UploadFile) error {
	if f.Data == nil {
		return fmt.Errorf("upload: %s has no data", field)
	}
	name := f.Name
	if name == "" {
		name = field
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part %s: %w", field, err)
	}
	if _, err := io.Copy(part, f.Data); err != nil {
		return fmt.Errorf("copy part %s: %w", field, err)
	}
	return nil
}

// AnalyzeRequest is the JSON body of POST /analyze.
type AnalyzeRequest struct {
	ScorecardBase64 string `json:"scorecard_base64"`
	ComicBase64     string `json:"comic_base64"`
	Author          string `json:"author"`
	Habits          string `json:"habits"`
	Reflection      string `json:"reflection"`
	GenerateAudio   bool   `json:"generate_audio"`
}

// AnalyzeResponse covers both analyze endpoints.
type AnalyzeResponse struct {
	Success         bool   `json:"success"`
	Analysis        string `json:"analysis,omitempty"`
	AudioDataBase64 string `json:"audio_data_base64,omitempty"`
	AudioURL        string `json:"audioUrl,omitempty"`
	AudioError      string `json:"audio_error,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Analyze posts inline image data to POST /analyze.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return AnalyzeResponse{}, fmt.Errorf("encode analyze request: %w", err)
	}
	return c.analyze(ctx, c.ResolveURL("analyze"), bytes.NewReader(payload), "application/json")
}

// AnalyzeWork asks the server to analyze a stored work by id.
func (c *Client) AnalyzeWork(ctx context.Context, id string) (AnalyzeResponse, error) {
	return c.analyze(ctx, c.ResolveURL("analyze/"+url.PathEscape(id)), nil, "")
}

func (c *Client) analyze(ctx context.Context, target string, body io.Reader, contentType string) (AnalyzeResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.analyzeTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodPost, target, contentType, body)
	if err != nil {
		return AnalyzeResponse{}, fmt.Errorf("analyze: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return AnalyzeResponse{}, &APIError{Status: resp.StatusCode, StatusText: statusText(resp), Message: errorMessage(resp.Body)}
	}
	var out AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return AnalyzeResponse{}, fmt.Errorf("analyze: %w", ErrMalformedResponse)
	}
	return out, nil
}

// FetchDataURL downloads an image and encodes it as a data URL.
func (c *Client) FetchDataURL(ctx context.Context, ref string) (string, error) {
	target := c.ResolveURL(ref)
	if target == "" {
		return "", ErrEmptyURL
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.getWithRetry(ctx, target)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, StatusText: statusText(resp)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxImage+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", target, err)
	}
	if int64(len(data)) > c.maxImage {
		return "", fmt.Errorf("fetch %s: %w", target, ErrImageTooLarge)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("fetch %s: empty body", target)
	}

	contentType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
		contentType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (c *Client) do(ctx context.Context, method, target, contentType string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

// errorMessage extracts {"error": "..."} from a failure body when present.
func errorMessage(r io.Reader) string {
	var payload struct {
		Error any `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 1<<20)).Decode(&payload); err != nil {
		return ""
	}
	switch v := payload.Error.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return strings.TrimSpace(msg)
		}
	}
	return ""
}
