package health

import (
	"os"
)

// Service encapsulates health-related checks of the dev backend.
type Service struct {
	storeDir string
	provider string
}

// NewService constructs a health service for the given object store
// directory and analysis provider.
func NewService(storeDir, provider string) *Service {
	return &Service{storeDir: storeDir, provider: provider}
}

// Status reports whether the backend can serve requests. A store directory
// that does not exist yet is fine: it is created on first upload.
func (s *Service) Status() map[string]any {
	store := "ok"
	if info, err := os.Stat(s.storeDir); err == nil && !info.IsDir() {
		store = "not a directory"
	} else if err != nil && !os.IsNotExist(err) {
		store = err.Error()
	}
	return map[string]any{
		"ok":       store == "ok",
		"store":    store,
		"provider": s.provider,
	}
}
