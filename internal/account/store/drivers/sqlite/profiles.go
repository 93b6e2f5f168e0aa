package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/caveo-app/caveo-api/internal/account/domain"
)

const profileColumns = `id, email, name, role, is_onboarded, created_at, updated_at, deleted_at`

type profilesRepo struct {
	db  *sql.DB
	now func() time.Time
}

func (r *profilesRepo) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id)
	p, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	return p, nil
}

func (r *profilesRepo) GetByEmail(ctx context.Context, email string) (domain.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, email)
	p, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	return p, nil
}

func (r *profilesRepo) Save(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	now := r.now()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, role, is_onboarded, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email        = excluded.email,
			name         = excluded.name,
			role         = excluded.role,
			is_onboarded = users.is_onboarded OR excluded.is_onboarded,
			updated_at   = excluded.updated_at
		RETURNING `+profileColumns,
		p.ID, p.Email, p.Name, string(p.Role), p.IsOnboarded, now, now,
	)
	saved, err := scanProfile(row)
	if err != nil {
		return domain.Profile{}, mapConstraint(err)
	}
	return saved, nil
}

func (r *profilesRepo) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE deleted_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
