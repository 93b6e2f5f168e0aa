package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/caveo-app/caveo-api/internal/account/domain"
)

const profileColumns = `id, email, name, role, is_onboarded, created_at, updated_at, deleted_at`

type profilesRepo struct {
	db  *sql.DB
	now func() time.Time
}

func (r *profilesRepo) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	return p, nil
}

func (r *profilesRepo) GetByEmail(ctx context.Context, email string) (domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	return p, nil
}

func (r *profilesRepo) Save(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	query := `INSERT INTO users (id, email, name, role, is_onboarded, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $6)
			  ON CONFLICT (id) DO UPDATE SET
			      email        = EXCLUDED.email,
			      name         = EXCLUDED.name,
			      role         = EXCLUDED.role,
			      is_onboarded = users.is_onboarded OR EXCLUDED.is_onboarded,
			      updated_at   = EXCLUDED.updated_at
			  RETURNING ` + profileColumns

	saved, err := scanProfile(r.db.QueryRowContext(ctx, query,
		p.ID, p.Email, p.Name, string(p.Role), p.IsOnboarded, r.now(),
	))
	if err != nil {
		if mapped := mapConstraint(err); mapped != err {
			return domain.Profile{}, mapped
		}
		return domain.Profile{}, fmt.Errorf("failed to save user: %w", err)
	}
	return saved, nil
}

func (r *profilesRepo) List(ctx context.Context) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE deleted_at IS NULL ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
