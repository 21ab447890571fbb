package applications

import "context"

// Repo defines persistence operations for applications.
//
// Replace writes the mutable fields of app only when the stored revision
// equals expected, bumping the revision. A mismatch returns
// ErrRevisionConflict; a missing record returns ErrNotFound.
type Repo interface {
	Create(ctx context.Context, app Application) error
	Get(ctx context.Context, id string) (Application, error)
	List(ctx context.Context, f ListFilter) ([]Application, error)
	ListNeedingScore(ctx context.Context) ([]Application, error)
	Replace(ctx context.Context, app Application, expected int64) (Application, error)
	Delete(ctx context.Context, id string) error
}
