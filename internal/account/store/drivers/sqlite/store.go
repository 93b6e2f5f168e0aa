package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
	now func() time.Time
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// In-memory databases are per connection.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		dsn: dsn,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Profiles() store.Profiles         { return &profilesRepo{db: s.db, now: s.now} }
func (s *Store) PendingSyncs() store.PendingSyncs { return &pendingSyncsRepo{db: s.db, now: s.now} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (domain.Profile, error) {
	var (
		p         domain.Profile
		role      string
		deletedAt sql.NullTime
	)
	if err := row.Scan(
		&p.ID, &p.Email, &p.Name, &role, &p.IsOnboarded,
		&p.CreatedAt, &p.UpdatedAt, &deletedAt,
	); err != nil {
		return domain.Profile{}, err
	}
	p.Role = domain.Role(role)
	p.DeletedAt = mapNullTimePtr(deletedAt)
	return p, nil
}

func scanPendingSync(row rowScanner) (domain.PendingSync, error) {
	var (
		ps   domain.PendingSync
		kind string
	)
	if err := row.Scan(
		&ps.ProfileID, &kind, &ps.Username, &ps.Value, &ps.Attempts, &ps.LastError,
		&ps.Version, &ps.CreatedAt, &ps.UpdatedAt,
	); err != nil {
		return domain.PendingSync{}, err
	}
	ps.Kind = domain.SyncKind(kind)
	return ps, nil
}
