package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/caveo-app/caveo-api/internal/account/domain"
)

type pendingSyncsRepo struct {
	db  *sql.DB
	now func() time.Time
}

func (r *pendingSyncsRepo) Enqueue(ctx context.Context, s domain.PendingSync) error {
	now := r.now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_syncs (profile_id, kind, username, value, attempts, last_error, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, 1, ?, ?)
		ON CONFLICT (profile_id, kind) DO UPDATE SET
			username   = excluded.username,
			value      = excluded.value,
			attempts   = 0,
			last_error = excluded.last_error,
			version    = pending_syncs.version + 1,
			updated_at = excluded.updated_at`,
		s.ProfileID, string(s.Kind), s.Username, s.Value, s.LastError, now, now,
	)
	return err
}

func (r *pendingSyncsRepo) ListDue(ctx context.Context, limit int) ([]domain.PendingSync, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT profile_id, kind, username, value, attempts, last_error, version, created_at, updated_at
		FROM pending_syncs
		ORDER BY updated_at, profile_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PendingSync
	for rows.Next() {
		ps, err := scanPendingSync(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (r *pendingSyncsRepo) MarkFailed(ctx context.Context, ps domain.PendingSync, lastErr string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_syncs
		SET attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE profile_id = ? AND kind = ? AND version = ?`,
		lastErr, r.now(), ps.ProfileID, string(ps.Kind), ps.Version,
	)
	if err != nil {
		return err
	}
	return mapNotFound(expectAffected(res))
}

func (r *pendingSyncsRepo) Delete(ctx context.Context, ps domain.PendingSync) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_syncs WHERE profile_id = ? AND kind = ? AND version = ?`,
		ps.ProfileID, string(ps.Kind), ps.Version)
	if err != nil {
		return err
	}
	return mapNotFound(expectAffected(res))
}

func (r *pendingSyncsRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_syncs`).Scan(&n)
	return n, err
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
