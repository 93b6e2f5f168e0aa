package service

import (
	"context"
	"log/slog"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/store"
	"github.com/caveo-app/caveo-api/pkg/slogx"
)

// SyncRecorder receives identity provider writes that failed after the local
// profile was saved. Implementations must not block the request for long and
// must not fail it.
type SyncRecorder interface {
	RecordSyncFailure(ctx context.Context, f domain.SyncFailure)
}

// SyncCounter counts failures by operation. *metrics.Metrics satisfies it.
type SyncCounter interface {
	SyncFailed(operation string)
}

// Provider operations, as counted in sync failure metrics.
const (
	OpAddToGroup            = "add_to_group"
	OpRemoveFromGroup       = "remove_from_group"
	OpUpdateAttributes      = "update_attributes"
	OpAdminUpdateAttributes = "admin_update_attributes"
)

// SyncSink logs each failure, counts it and queues it for the Reconciler.
type SyncSink struct {
	Store   store.Store
	Metrics SyncCounter
}

func (s *SyncSink) RecordSyncFailure(ctx context.Context, f domain.SyncFailure) {
	log := slogx.FromContext(ctx)
	log.Warn("identity provider sync failed, queued for reconciliation",
		slog.String("profile_id", f.ProfileID),
		slog.String("kind", string(f.Kind)),
		slog.String("operation", operationFor(f)),
		slog.Any("error", f.Err),
	)

	if s.Metrics != nil {
		s.Metrics.SyncFailed(operationFor(f))
	}

	if s.Store == nil {
		return
	}

	var lastErr string
	if f.Err != nil {
		lastErr = f.Err.Error()
	}
	err := s.Store.PendingSyncs().Enqueue(ctx, domain.PendingSync{
		ProfileID: f.ProfileID,
		Username:  f.Username,
		Kind:      f.Kind,
		Value:     f.Value,
		LastError: lastErr,
	})
	if err != nil {
		log.Error("failed to queue pending sync",
			slog.String("profile_id", f.ProfileID),
			slog.String("kind", string(f.Kind)),
			slog.Any("error", err),
		)
	}
}

// recordSyncFailure hands f to rec, or just logs it when there is no recorder.
func recordSyncFailure(ctx context.Context, rec SyncRecorder, f domain.SyncFailure) {
	if rec == nil {
		slogx.FromContext(ctx).Warn("identity provider sync failed",
			slog.String("profile_id", f.ProfileID),
			slog.String("kind", string(f.Kind)),
			slog.Any("error", f.Err),
		)
		return
	}
	rec.RecordSyncFailure(ctx, f)
}

// operationFor returns f.Op, or a default derived from the kind when the
// caller did not say which call failed.
func operationFor(f domain.SyncFailure) string {
	if f.Op != "" {
		return f.Op
	}
	switch f.Kind {
	case domain.SyncGroup:
		return OpAddToGroup
	case domain.SyncName:
		return OpUpdateAttributes
	default:
		return string(f.Kind)
	}
}
