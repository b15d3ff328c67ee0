package audio

import (
	"fmt"
	"os"
	"sync"
)

// Source is a playable audio resource held by exactly one owner.
type Source interface {
	// URI is what a player opens: a local path or a remote URL.
	URI() string
	// Release frees the resource. It is safe to call more than once.
	Release() error
	Local() bool
}

// LocalSource is decoded audio written to a temporary file.
type LocalSource struct {
	path     string
	once     sync.Once
	released bool
	mu       sync.Mutex
}

// NewLocalSource writes data to a temp .mp3 file.
func NewLocalSource(data []byte) (*LocalSource, error) {
	f, err := os.CreateTemp("", "habit-gallery-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("create temp audio: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write temp audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("close temp audio: %w", err)
	}
	return &LocalSource{path: f.Name()}, nil
}

func (s *LocalSource) URI() string { return s.path }

func (s *LocalSource) Local() bool { return true }

func (s *LocalSource) Release() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.released = true
		s.mu.Unlock()
		if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) {
			err = fmt.Errorf("remove temp audio: %w", rmErr)
		}
	})
	return err
}

// Released reports whether Release has run.
func (s *LocalSource) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// RemoteSource is audio hosted by the backend and fetched by the player.
type RemoteSource struct {
	url string
}

func NewRemoteSource(url string) *RemoteSource {
	return &RemoteSource{url: url}
}

func (s *RemoteSource) URI() string { return s.url }

func (s *RemoteSource) Local() bool { return false }

func (s *RemoteSource) Release() error { return nil }
