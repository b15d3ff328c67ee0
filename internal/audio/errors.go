package audio

import "errors"

var (
	ErrInvalidBase64 = errors.New("invalid base64 audio data")
	ErrAudioTooSmall = errors.New("decoded audio is too small")
	ErrNoSource      = errors.New("no audio source loaded")
	ErrNoPlayer      = errors.New("no audio player available")
)
