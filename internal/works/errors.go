package works

import "errors"

var (
	ErrNotFound       = errors.New("work not found")
	ErrIncompleteData = errors.New("both image encodings are required")
)
