package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/store"
)

type pendingSyncsRepo struct {
	db  *sql.DB
	now func() time.Time
}

func (r *pendingSyncsRepo) Enqueue(ctx context.Context, s domain.PendingSync) error {
	query := `INSERT INTO pending_syncs (profile_id, kind, username, value, attempts, last_error, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, 0, $5, 1, $6, $6)
			  ON CONFLICT (profile_id, kind) DO UPDATE SET
			      username   = EXCLUDED.username,
			      value      = EXCLUDED.value,
			      attempts   = 0,
			      last_error = EXCLUDED.last_error,
			      version    = pending_syncs.version + 1,
			      updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query,
		s.ProfileID, string(s.Kind), s.Username, s.Value, s.LastError, r.now(),
	); err != nil {
		return fmt.Errorf("failed to enqueue pending sync: %w", err)
	}
	return nil
}

func (r *pendingSyncsRepo) ListDue(ctx context.Context, limit int) ([]domain.PendingSync, error) {
	query := `SELECT profile_id, kind, username, value, attempts, last_error, version, created_at, updated_at
			  FROM pending_syncs
			  ORDER BY updated_at, profile_id
			  LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending syncs: %w", err)
	}
	defer rows.Close()

	var out []domain.PendingSync
	for rows.Next() {
		ps, err := scanPendingSync(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending sync: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (r *pendingSyncsRepo) MarkFailed(ctx context.Context, ps domain.PendingSync, lastErr string) error {
	query := `UPDATE pending_syncs
			  SET attempts = attempts + 1, last_error = $1, updated_at = $2
			  WHERE profile_id = $3 AND kind = $4 AND version = $5`

	res, err := r.db.ExecContext(ctx, query, lastErr, r.now(), ps.ProfileID, string(ps.Kind), ps.Version)
	if err != nil {
		return fmt.Errorf("failed to mark pending sync: %w", err)
	}
	return expectAffected(res)
}

func (r *pendingSyncsRepo) Delete(ctx context.Context, ps domain.PendingSync) error {
	query := `DELETE FROM pending_syncs WHERE profile_id = $1 AND kind = $2 AND version = $3`

	res, err := r.db.ExecContext(ctx, query, ps.ProfileID, string(ps.Kind), ps.Version)
	if err != nil {
		return fmt.Errorf("failed to delete pending sync: %w", err)
	}
	return expectAffected(res)
}

func (r *pendingSyncsRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_syncs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending syncs: %w", err)
	}
	return n, nil
}

// expectAffected maps a write that matched no row to store.ErrNotFound.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
