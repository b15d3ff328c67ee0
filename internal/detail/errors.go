package detail

import "errors"

var (
	ErrWorkNotFound = errors.New("work not found")
	ErrNoView       = errors.New("modal view not attached")
)

const alertUnableToShow = "Unable to show work details."
