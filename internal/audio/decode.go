package audio

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// MinClipBytes is the smallest decoded clip treated as real audio.
const MinClipBytes = 100

var base64Charset = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)

// DecodeBase64 decodes plain or data-URL base64 text, ignoring whitespace.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, fmt.Errorf("%w: data url without payload", ErrInvalidBase64)
		}
		s = s[idx+1:]
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidBase64)
	}
	if !base64Charset.MatchString(s) {
		return nil, fmt.Errorf("%w: unexpected characters", ErrInvalidBase64)
	}
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return data, nil
}

// DecodeClip decodes inline audio and rejects near-empty results.
func DecodeClip(s string) ([]byte, error) {
	data, err := DecodeBase64(s)
	if err != nil {
		return nil, err
	}
	if len(data) < MinClipBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrAudioTooSmall, len(data))
	}
	return data, nil
}
