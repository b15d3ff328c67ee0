package analysis

import "errors"

var (
	ErrInFlight       = errors.New("analysis already in progress")
	ErrNoRecord       = errors.New("no active work")
	ErrMissingImages  = errors.New("missing image data")
	ErrMissingID      = errors.New("missing work id")
	ErrStale          = errors.New("stale analysis response discarded")
	ErrAnalysisFailed = errors.New("analysis failed")
)

const (
	msgNoRecord      = "Error: please open a work first."
	msgMissingImages = "Missing image data, cannot analyze. Please reopen the work."
	msgMissingID     = "This work has no id, cannot analyze."
	msgGeneric       = "The analysis request failed, please try again later."
)

func readinessMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingImages):
		return "Error: " + msgMissingImages
	case errors.Is(err, ErrMissingID):
		return "Error: " + msgMissingID
	case errors.Is(err, ErrNoRecord):
		return msgNoRecord
	}
	return "Error: " + err.Error()
}
