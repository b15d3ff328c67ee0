package works

import (
	"context"
	"sync"

	"habit-gallery/internal/shared/telemetry"
)

// Store is the page session's snapshot of all works, safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records []Record
	byID    map[string]int
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// Replace swaps the snapshot wholesale. Cached image encodings are not carried
// over. A repeated id keeps its first entry.
func (s *Store) Replace(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next := make([]Record, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		if rec.ID != "" {
			if _, dup := index[rec.ID]; dup {
				telemetry.Warn("works.duplicate_id", map[string]any{"id": rec.ID})
				continue
			}
			index[rec.ID] = len(next)
		}
		next = append(next, rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = next
	s.byID = index
	return nil
}

// Snapshot returns a copy of the records in server order.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Find returns the record with the given id.
func (s *Store) Find(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok || id == "" {
		return Record{}, ErrNotFound
	}
	return s.records[idx], nil
}

// AttachImages caches both image encodings on the record. Both must be set.
func (s *Store) AttachImages(id, scorecard, comic string) error {
	if scorecard == "" || comic == "" {
		return ErrIncompleteData
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.records[idx].ScorecardBase64 = scorecard
	s.records[idx].ComicBase64 = comic
	return nil
}
