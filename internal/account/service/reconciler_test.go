package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caveo-app/caveo-api/internal/account/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSyncSinkQueuesFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	seedProfile(t, st, domain.NewProfile("u1", "john@example.com", "John"))

	counts := map[string]int{}
	sink := &SyncSink{Store: st, Metrics: syncCounter(counts)}
	sink.RecordSyncFailure(ctx, domain.SyncFailure{
		ProfileID: "u1",
		Username:  "john@example.com",
		Kind:      domain.SyncName,
		Value:     "Johnny",
		Err:       errors.New("boom"),
	})

	due, err := st.PendingSyncs().ListDue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "Johnny", due[0].Value)
	require.Equal(t, "boom", due[0].LastError)
	require.Equal(t, 1, counts["update_attributes"])
}

type syncCounter map[string]int

func (c syncCounter) SyncFailed(op string) { c[op]++ }

func TestReconcilerAppliesCurrentState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	provider := newFakeProvider()

	p := domain.NewProfile("u1", "john@example.com", "John")
	p.Role = domain.RoleAdmin
	seedProfile(t, st, p)

	sink := &SyncSink{Store: st}
	sink.RecordSyncFailure(ctx, domain.SyncFailure{ProfileID: "u1", Username: p.Email, Kind: domain.SyncGroup, Value: "admin"})
	// Queued value is stale; the reconciler pushes what the row holds now.
	sink.RecordSyncFailure(ctx, domain.SyncFailure{ProfileID: "u1", Username: p.Email, Kind: domain.SyncName, Value: "Old"})

	r := NewReconciler(st, provider, quietLogger(), time.Hour, 10, 3)
	res := r.RunOnce(ctx)
	require.Equal(t, ReconcileResult{Applied: 2}, res)

	require.Equal(t, []providerCall{{Op: "AddToGroup", Username: "john@example.com", Value: "admin"}}, provider.Calls("AddToGroup"))
	require.Equal(t, []providerCall{{Op: "RemoveFromGroup", Username: "john@example.com", Value: "user"}}, provider.Calls("RemoveFromGroup"))
	require.Equal(t, []providerCall{{Op: "AdminUpdateUserAttributes", Username: "john@example.com", Value: "John"}},
		provider.Calls("AdminUpdateUserAttributes"))

	due, err := st.PendingSyncs().ListDue(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestReconcilerRetriesThenDrops(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	provider := newFakeProvider()
	provider.adminAttrErr = errors.New("still down")

	seedProfile(t, st, domain.NewProfile("u1", "john@example.com", "John"))
	(&SyncSink{Store: st}).RecordSyncFailure(ctx, domain.SyncFailure{
		ProfileID: "u1", Username: "john@example.com", Kind: domain.SyncName, Value: "John",
	})

	r := NewReconciler(st, provider, quietLogger(), time.Hour, 10, 3)

	require.Equal(t, ReconcileResult{Retried: 1}, r.RunOnce(ctx))
	require.Equal(t, ReconcileResult{Retried: 1}, r.RunOnce(ctx))

	due, err := st.PendingSyncs().ListDue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, 2, due[0].Attempts)
	require.Equal(t, "still down", due[0].LastError)

	require.Equal(t, ReconcileResult{Dropped: 1}, r.RunOnce(ctx))
	due, err = st.PendingSyncs().ListDue(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestReconcilerStartStop(t *testing.T) {
	t.Parallel()
	st := newStore(t)
	provider := newFakeProvider()

	seedProfile(t, st, domain.NewProfile("u1", "john@example.com", "John"))
	(&SyncSink{Store: st}).RecordSyncFailure(context.Background(), domain.SyncFailure{
		ProfileID: "u1", Username: "john@example.com", Kind: domain.SyncName, Value: "John",
	})

	r := NewReconciler(st, provider, quietLogger(), time.Hour, 0, 0)
	require.Equal(t, DefaultReconcileBatch, r.Batch)
	require.Equal(t, DefaultReconcileMaxAttempts, r.MaxAttempts)

	r.Start()
	require.Eventually(t, func() bool {
		return len(provider.Calls("AdminUpdateUserAttributes")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	r.Stop()
}

// editDuringReplay makes the next admin attribute call race with a self edit
// to name whose own provider call fails and gets queued.
func editDuringReplay(t *testing.T, svc *AccountService, provider *fakeProvider, id, name string) {
	t.Helper()

	fired := false
	provider.onAdminUpdate = func() {
		if fired {
			return
		}
		fired = true
		_, err := svc.UpdateProfile(context.Background(), asUser(id), "tok-"+id, domain.ProfileChange{Name: ptr(name)})
		require.NoError(t, err)
	}
}

func TestReconcilerKeepsSyncQueuedDuringApply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	provider := newFakeProvider()
	provider.attrErr = errors.New("throttled")

	seedProfile(t, st, domain.NewProfile("u1", "john@example.com", "John"))
	sink := &SyncSink{Store: st}
	sink.RecordSyncFailure(ctx, domain.SyncFailure{
		ProfileID: "u1", Username: "john@example.com", Kind: domain.SyncName, Value: "John",
	})

	svc := &AccountService{Store: st, Provider: provider, Sync: sink}
	editDuringReplay(t, svc, provider, "u1", "Jane")

	r := NewReconciler(st, provider, quietLogger(), time.Hour, 10, 3)
	require.Equal(t, ReconcileResult{Applied: 1}, r.RunOnce(ctx))

	due, err := st.PendingSyncs().ListDue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "Jane", due[0].Value)
	require.Equal(t, "throttled", due[0].LastError)
	require.Equal(t, 0, due[0].Attempts)

	// The next pass pushes the newer name and clears the queue.
	require.Equal(t, ReconcileResult{Applied: 1}, r.RunOnce(ctx))
	calls := provider.Calls("AdminUpdateUserAttributes")
	require.Len(t, calls, 2)
	require.Equal(t, "Jane", calls[1].Value)

	due, err = st.PendingSyncs().ListDue(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestReconcilerKeepsSyncQueuedDuringRetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	provider := newFakeProvider()
	provider.attrErr = errors.New("throttled")
	provider.adminAttrErr = errors.New("still down")

	seedProfile(t, st, domain.NewProfile("u1", "john@example.com", "John"))
	sink := &SyncSink{Store: st}
	sink.RecordSyncFailure(ctx, domain.SyncFailure{
		ProfileID: "u1", Username: "john@example.com", Kind: domain.SyncName, Value: "John",
	})

	svc := &AccountService{Store: st, Provider: provider, Sync: sink}
	editDuringReplay(t, svc, provider, "u1", "Jane")

	r := NewReconciler(st, provider, quietLogger(), time.Hour, 10, 3)
	require.Equal(t, ReconcileResult{Retried: 1}, r.RunOnce(ctx))

	// The newer row keeps its fresh attempt budget.
	due, err := st.PendingSyncs().ListDue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "Jane", due[0].Value)
	require.Equal(t, 0, due[0].Attempts)
	require.Equal(t, "throttled", due[0].LastError)
}

type reconcileCounter struct {
	mu      sync.Mutex
	results map[string]int
	pending []int
}

func (c *reconcileCounter) Reconciled(kind, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[kind+"/"+result]++
}

func (c *reconcileCounter) PendingSyncs(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, n)
}

func TestReconcilerReportsWholeQueue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	provider := newFakeProvider()

	sink := &SyncSink{Store: st}
	for _, id := range []string{"u1", "u2", "u3"} {
		email := id + "@example.com"
		seedProfile(t, st, domain.NewProfile(id, email, "Name "+id))
		sink.RecordSyncFailure(ctx, domain.SyncFailure{
			ProfileID: id, Username: email, Kind: domain.SyncName, Value: "Name " + id,
		})
	}

	counter := &reconcileCounter{}
	r := NewReconciler(st, provider, quietLogger(), time.Hour, 1, 3)
	r.Metrics = counter

	require.Equal(t, ReconcileResult{Applied: 1}, r.RunOnce(ctx))
	require.Equal(t, []int{2}, counter.pending)
	require.Equal(t, 1, counter.results["name/applied"])

	r.RunOnce(ctx)
	r.RunOnce(ctx)
	r.RunOnce(ctx)
	require.Equal(t, []int{2, 1, 0, 0}, counter.pending)
}
