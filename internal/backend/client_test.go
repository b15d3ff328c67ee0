package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	c.retryDelay = time.Millisecond
	return c
}

func TestNewRejectsBadURLs(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrEmptyURL)
	_, err = New(Options{BaseURL: "/relative"})
	assert.Error(t, err)
}

func TestResolveURL(t *testing.T) {
	c, err := New(Options{BaseURL: "http://gallery.test:5000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://gallery.test:5000", c.BaseURL())
	assert.Equal(t, "http://gallery.test:5000/audio_cache/a.mp3", c.ResolveURL("/audio_cache/a.mp3"))
	assert.Equal(t, "https://cdn.test/x.png", c.ResolveURL("https://cdn.test/x.png"))
	assert.Equal(t, "", c.ResolveURL("  "))
}

func TestListWorksDecodesArray(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)
		io.WriteString(w, `[{"id":"a","author":"Ann","currentHabits":"run","reflection":"ok","scorecardImageUrl":"/uploads/a.png","comicImageUrl":"/uploads/b.png"}, 7]`)
	}))

	recs, err := c.ListWorks(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Ann", recs[0].Author)
	assert.Equal(t, "/uploads/a.png", recs[0].ScorecardImageURL)
	assert.False(t, recs[1].Valid())
}

func TestListWorksRejectsNonArray(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"works":[]}`)
	}))
	_, err := c.ListWorks(context.Background())
	assert.ErrorIs(t, err, ErrNotArray)
}

func TestListWorksRetriesOnceOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `[]`)
	}))
	recs, err := c.ListWorks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListWorksReportsStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	_, err := c.ListWorks(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Not Found", apiErr.Reason())
}

func TestUploadSendsMultipartFields(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Ann", r.FormValue("author-name"))
		assert.Equal(t, "run daily", r.FormValue("current-habits"))
		assert.Equal(t, "felt good", r.FormValue("reflection"))
		f, hdr, err := r.FormFile("scorecard-image")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "score.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		_, _, err = r.FormFile("comic-image")
		require.NoError(t, err)
		io.WriteString(w, `{"success":true,"message":"ok","work_id":"w1"}`)
	}))

	resp, err := c.Upload(context.Background(), UploadRequest{
		Author:     "Ann",
		Habits:     "run daily",
		Reflection: "felt good",
		Scorecard:  UploadFile{Name: "score.png", ContentType: "image/png", Data: strings.NewReader("png")},
		Comic:      UploadFile{Name: "comic.gif", ContentType: "image/gif", Data: strings.NewReader("gif")},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "w1", resp.WorkID)
}

func TestUploadClassifiesFailures(t *testing.T) {
	req := UploadRequest{
		Scorecard: UploadFile{Data: strings.NewReader("a")},
		Comic:     UploadFile{Data: strings.NewReader("b")},
	}

	html := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		io.WriteString(w, "<html>too large</html>")
	}))
	_, err := html.Upload(context.Background(), req)
	var notJSON *NotJSONError
	require.True(t, errors.As(err, &notJSON))
	assert.Equal(t, http.StatusRequestEntityTooLarge, notJSON.Status)

	req.Scorecard.Data = strings.NewReader("a")
	req.Comic.Data = strings.NewReader("b")
	bad := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"success":false,"error":"missing author"}`)
	}))
	_, err = bad.Upload(context.Background(), req)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "missing author", apiErr.Reason())
}

func TestAnalyzeInlineBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["generate_audio"])
		assert.Equal(t, "data:image/png;base64,AA==", body["scorecard_base64"])
		io.WriteString(w, `{"success":true,"analysis":"# hi","audio_error":"tts down"}`)
	}))
	resp, err := c.Analyze(context.Background(), AnalyzeRequest{ScorecardBase64: "data:image/png;base64,AA==", GenerateAudio: true})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "# hi", resp.Analysis)
	assert.Equal(t, "tts down", resp.AudioError)
}

func TestAnalyzeWorkErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/analyze/missing":
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"success":false,"error":"work not found"}`)
		case "/analyze/plain":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			io.WriteString(w, "not json")
		}
	}))

	_, err := c.AnalyzeWork(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "work not found", apiErr.Reason())

	_, err = c.AnalyzeWork(context.Background(), "plain")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Internal Server Error", apiErr.Reason())

	_, err = c.AnalyzeWork(context.Background(), "garbled")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetchDataURL(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(png)
	}))
	got, err := c.FetchDataURL(context.Background(), "/uploads/a.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "data:image/png;base64,"), got)

	_, err = c.FetchDataURL(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestFetchDataURLRejectsOversizedImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))

	c.maxImage = int64(len(png))
	_, err := c.FetchDataURL(context.Background(), "/uploads/a.png")
	require.NoError(t, err)

	c.maxImage = int64(len(png)) - 1
	got, err := c.FetchDataURL(context.Background(), "/uploads/a.png")
	assert.ErrorIs(t, err, ErrImageTooLarge)
	assert.Empty(t, got)
}
