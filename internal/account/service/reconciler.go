package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/identity"
	"github.com/caveo-app/caveo-api/internal/account/store"
)

const (
	DefaultReconcileInterval    = time.Minute
	DefaultReconcileBatch       = 50
	DefaultReconcileMaxAttempts = 5
)

// ReconcileRecorder counts replay outcomes. *metrics.Metrics satisfies it.
type ReconcileRecorder interface {
	Reconciled(kind, result string)
	PendingSyncs(n int)
}

// Reconciler periodically replays pending syncs so the identity provider
// converges on the local profile. Replays use the current profile row, not
// the value captured at failure time, and always go through admin scoped
// calls since the caller's access token is long gone.
type Reconciler struct {
	Store       store.Store
	Provider    identity.Provider
	Logger      *slog.Logger
	Metrics     ReconcileRecorder
	Interval    time.Duration
	Batch       int
	MaxAttempts int

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReconciler fills in defaults for non-positive settings.
func NewReconciler(st store.Store, p identity.Provider, logger *slog.Logger, interval time.Duration, batch, maxAttempts int) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	if batch <= 0 {
		batch = DefaultReconcileBatch
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultReconcileMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		Store:       st,
		Provider:    p,
		Logger:      logger,
		Interval:    interval,
		Batch:       batch,
		MaxAttempts: maxAttempts,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (r *Reconciler) Start() {
	go r.run()
	r.Logger.Info("reconciler started", "interval", r.Interval, "batch", r.Batch)
}

// Stop signals the worker and blocks until the in-flight pass finishes.
func (r *Reconciler) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.Logger.Info("reconciler stopped")
}

func (r *Reconciler) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	r.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-r.stopCh:
			return
		}
	}
}

// ReconcileResult summarises one pass.
type ReconcileResult struct {
	Applied int
	Retried int
	Dropped int
}

// RunOnce replays one batch of due syncs. Each sync is independent; a failure
// on one never stops the others.
func (r *Reconciler) RunOnce(ctx context.Context) ReconcileResult {
	var res ReconcileResult

	due, err := r.Store.PendingSyncs().ListDue(ctx, r.Batch)
	if err != nil {
		r.Logger.Error("failed to list pending syncs", "error", err)
		return res
	}
	if len(due) == 0 {
		r.reportPending(ctx)
		return res
	}

	for _, ps := range due {
		if ctx.Err() != nil {
			break
		}

		log := r.Logger.With("profile_id", ps.ProfileID, "kind", string(ps.Kind), "attempts", ps.Attempts)

		err := r.replay(ctx, ps)
		switch {
		case err == nil:
			r.finish(ctx, log, ps)
			r.count(ps.Kind, "applied")
			res.Applied++
			log.Info("pending sync applied")

		case errors.Is(err, errAbandon), ps.Attempts+1 >= r.MaxAttempts:
			r.finish(ctx, log, ps)
			r.count(ps.Kind, "dropped")
			res.Dropped++
			log.Error("pending sync dropped", "error", err)

		default:
			mErr := r.Store.PendingSyncs().MarkFailed(ctx, ps, err.Error())
			switch {
			case errors.Is(mErr, store.ErrNotFound):
				log.Info("pending sync superseded during replay, left queued")
			case mErr != nil:
				log.Error("failed to mark pending sync", "error", mErr)
			}
			r.count(ps.Kind, "retry")
			res.Retried++
			log.Warn("pending sync failed, will retry", "error", err)
		}
	}

	r.reportPending(ctx)
	r.Logger.Info("reconcile pass completed",
		"applied", res.Applied, "retried", res.Retried, "dropped", res.Dropped)
	return res
}

var errAbandon = errors.New("profile no longer exists")

// replay pushes the current local state for ps to the identity provider.
func (r *Reconciler) replay(ctx context.Context, ps domain.PendingSync) error {
	p, err := r.Store.Profiles().GetByID(ctx, ps.ProfileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errAbandon
		}
		return err
	}

	switch ps.Kind {
	case domain.SyncGroup:
		_, err := syncGroup(ctx, r.Provider, p.Email, p.Role, otherRole(p.Role))
		return err
	case domain.SyncName:
		return r.Provider.AdminUpdateUserAttributes(ctx, p.Email, identity.Named(p.Name))
	default:
		return errAbandon
	}
}

// finish removes ps only if nothing was queued over it while it was being
// replayed; a newer failure keeps its row for the next pass.
func (r *Reconciler) finish(ctx context.Context, log *slog.Logger, ps domain.PendingSync) {
	err := r.Store.PendingSyncs().Delete(ctx, ps)
	switch {
	case errors.Is(err, store.ErrNotFound):
		log.Info("pending sync superseded during replay, left queued")
	case err != nil:
		log.Error("failed to delete pending sync", "error", err)
	}
}

// reportPending publishes the size of the whole queue, not just the batch.
func (r *Reconciler) reportPending(ctx context.Context) {
	if r.Metrics == nil {
		return
	}
	n, err := r.Store.PendingSyncs().Count(ctx)
	if err != nil {
		r.Logger.Error("failed to count pending syncs", "error", err)
		return
	}
	r.Metrics.PendingSyncs(n)
}

func (r *Reconciler) count(kind domain.SyncKind, result string) {
	if r.Metrics != nil {
		r.Metrics.Reconciled(string(kind), result)
	}
}

func otherRole(r domain.Role) domain.Role {
	if r == domain.RoleAdmin {
		return domain.RoleUser
	}
	return domain.RoleAdmin
}
