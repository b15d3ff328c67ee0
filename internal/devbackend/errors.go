package devbackend

import "errors"

var (
	ErrNotFound       = errors.New("work not found")
	ErrImagesMissing  = errors.New("work images missing")
	ErrInvalidImage   = errors.New("invalid image data")
	ErrAnalysisFailed = errors.New("analysis failed")
)
