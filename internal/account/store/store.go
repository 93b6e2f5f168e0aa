package store

import (
	"context"
	"errors"

	"github.com/caveo-app/caveo-api/internal/account/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this and expose one sub-repository per table.
type Store interface {
	Profiles() Profiles
	PendingSyncs() PendingSyncs

	ApplyMigrations() error

	// Close releases the underlying connection pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Profiles interface {
	// GetByID returns a live (not soft deleted) profile by provider subject.
	GetByID(ctx context.Context, id string) (domain.Profile, error)

	// GetByEmail is used to correlate sign in attempts with local rows.
	GetByEmail(ctx context.Context, email string) (domain.Profile, error)

	// Save inserts or updates the row keyed by p.ID and returns it as stored,
	// with created_at/updated_at maintained by the store. is_onboarded never
	// goes back to false. Returns ErrAlreadyExists when another subject owns
	// the email.
	Save(ctx context.Context, p domain.Profile) (domain.Profile, error)

	// List returns all live profiles, oldest first.
	List(ctx context.Context) ([]domain.Profile, error)
}

type PendingSyncs interface {
	// Enqueue records a failed provider write, replacing any pending sync of
	// the same kind for the profile, resetting its attempt counter and
	// bumping its version.
	Enqueue(ctx context.Context, s domain.PendingSync) error

	// ListDue returns up to limit pending syncs, least recently tried first.
	ListDue(ctx context.Context, limit int) ([]domain.PendingSync, error)

	// MarkFailed bumps the attempt counter and stores the last error. It only
	// touches the row when it is still at ps.Version and returns ErrNotFound
	// when the row is gone or was replaced since ps was read.
	MarkFailed(ctx context.Context, ps domain.PendingSync, lastErr string) error

	// Delete removes a pending sync once it succeeded or was abandoned, under
	// the same version rule as MarkFailed.
	Delete(ctx context.Context, ps domain.PendingSync) error

	// Count returns the number of queued syncs.
	Count(ctx context.Context) (int, error)
}
