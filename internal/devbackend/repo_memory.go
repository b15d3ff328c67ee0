package devbackend

import (
	"context"
	"sync"
)

// MemoryRepo stores works in memory and is safe for concurrent use.
// List returns works in insertion order.
type MemoryRepo struct {
	mu    sync.RWMutex
	byID  map[string]Work
	order []string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Work)}
}

// Create stores the work.
func (r *MemoryRepo) Create(ctx context.Context, work Work) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[work.ID]; !exists {
		r.order = append(r.order, work.ID)
	}
	r.byID[work.ID] = work
	return nil
}

// GetByID returns a work by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Work, error) {
	if err := ctx.Err(); err != nil {
		return Work{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	work, ok := r.byID[id]
	if !ok {
		return Work{}, ErrNotFound
	}
	return work, nil
}

// List returns all works.
func (r *MemoryRepo) List(ctx context.Context) ([]Work, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Work, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}
