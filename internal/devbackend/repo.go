package devbackend

import "context"

// Repo stores shared works.
type Repo interface {
	Create(ctx context.Context, work Work) error
	GetByID(ctx context.Context, id string) (Work, error)
	List(ctx context.Context) ([]Work, error)
}
