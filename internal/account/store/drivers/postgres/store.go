package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/store"
)

const uniqueViolation = "23505"

var _ store.Store = (*Store)(nil)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens a pool against dsn and checks it is reachable.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an existing handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Close() error { return s.db.Close() }

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
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrAlreadyExists
	}
	return err
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
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
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
