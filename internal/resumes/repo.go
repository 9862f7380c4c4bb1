package resumes

import "context"

// Repo defines persistence operations for resumes.
type Repo interface {
	Create(ctx context.Context, r Resume) error
	Get(ctx context.Context, id string) (Resume, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]Resume, error)
	// UpdateStatus moves a resume to status, rejecting backward moves with
	// ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, status Status) error
}
