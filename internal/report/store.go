package report

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no report exists under the given ID.
var ErrNotFound = errors.New("report not found")

// Store persists evaluation reports. Implementations must return
// ErrNotFound from Get and Delete for unknown IDs.
type Store interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id string) (*Report, error)
	List(ctx context.Context) ([]*Report, error)
	Delete(ctx context.Context, id string) error
}
