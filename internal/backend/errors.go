package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	ErrNotArray          = errors.New("works response is not a list")
	ErrMalformedResponse = errors.New("malformed response body")
	ErrEmptyURL          = errors.New("empty url")
	ErrImageTooLarge     = errors.New("image exceeds size limit")
)

// APIError is a non-OK HTTP response. Message holds the structured error the
// server sent, when it sent one.
type APIError struct {
	Status     int
	StatusText string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Reason())
}

// Reason prefers the server-provided message over the status text.
func (e *APIError) Reason() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	if e.StatusText != "" {
		return e.StatusText
	}
	return http.StatusText(e.Status)
}

// NotJSONError reports a response whose body could not be decoded as JSON.
type NotJSONError struct {
	Status int
	Err    error
}

func (e *NotJSONError) Error() string {
	return "response is not valid JSON (status " + strconv.Itoa(e.Status) + ")"
}

func (e *NotJSONError) Unwrap() error { return e.Err }

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
