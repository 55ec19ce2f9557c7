package tracking

import "context"

// Repository is the persistence surface the services need. The gorm
// implementation lives in gorm_repository.go; tests use an in-memory fake.
type Repository interface {
	// Create inserts the row. Returns ErrDuplicate when another row for the
	// same (userID, jobID) already exists.
	Create(ctx context.Context, app *TrackedApplication) error

	// GetByUserAndJob returns ErrNotFound when no row exists.
	GetByUserAndJob(ctx context.Context, userID, jobID uint64) (*TrackedApplication, error)

	// GetByID scopes by owner; other users' rows are ErrNotFound.
	GetByID(ctx context.Context, userID, id uint64) (*TrackedApplication, error)

	// GetResolved is GetByUserAndJob with the referenced Job loaded.
	GetResolved(ctx context.Context, userID, jobID uint64) (*TrackedApplication, error)

	UpdateStatus(ctx context.Context, id uint64, status Status) error

	// Save persists every mutable field of the row.
	Save(ctx context.Context, app *TrackedApplication) error

	// Delete removes the row and its history entries atomically.
	Delete(ctx context.Context, userID, id uint64) error

	AppendHistory(ctx context.Context, entry *StatusHistoryEntry) error

	// History returns entries ordered oldest first.
	History(ctx context.Context, trackedApplicationID uint64) ([]StatusHistoryEntry, error)

	// CountByStatus returns only statuses that have rows; the service
	// zero-fills the rest.
	CountByStatus(ctx context.Context, userID uint64) (map[Status]int64, error)

	JobExists(ctx context.Context, jobID uint64) (bool, error)
}
