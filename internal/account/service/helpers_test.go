package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/identity"
	"github.com/caveo-app/caveo-api/internal/account/store/drivers/sqlite"
)

type providerCall struct {
	Op       string
	Username string // email, or the access token for UpdateUserAttributes
	Value    string
}

// fakeProvider is an in-memory identity.Provider. Setting an error field makes
// the matching operation fail.
type fakeProvider struct {
	mu    sync.Mutex
	calls []providerCall
	users map[string]string // email -> password

	signUpErr, signInErr, groupErr, removeErr, attrErr, adminAttrErr error

	// onAdminUpdate runs inside AdminUpdateUserAttributes before it returns.
	onAdminUpdate func()
}

var _ identity.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{users: map[string]string{}}
}

func (f *fakeProvider) record(op, username, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, providerCall{Op: op, Username: username, Value: value})
}

func (f *fakeProvider) Calls(op string) []providerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []providerCall
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeProvider) SignUp(_ context.Context, email, password, name string) (string, error) {
	f.record("SignUp", email, name)
	if f.signUpErr != nil {
		return "", f.signUpErr
	}
	f.mu.Lock()
	f.users[email] = password
	f.mu.Unlock()
	return uuid.NewString(), nil
}

func (f *fakeProvider) SignIn(_ context.Context, email, password string) (domain.Tokens, error) {
	f.record("SignIn", email, "")
	if f.signInErr != nil {
		return domain.Tokens{}, f.signInErr
	}
	f.mu.Lock()
	pw, ok := f.users[email]
	f.mu.Unlock()
	if !ok || pw != password {
		return domain.Tokens{}, domain.NewError(domain.ErrInvalidCredentials, "Invalid email or password")
	}
	return domain.Tokens{AccessToken: "access-" + email, IDToken: "id-" + email, RefreshToken: "refresh", ExpiresIn: 3600}, nil
}

func (f *fakeProvider) AddToGroup(_ context.Context, username string, group domain.Role) error {
	f.record("AddToGroup", username, string(group))
	return f.groupErr
}

func (f *fakeProvider) RemoveFromGroup(_ context.Context, username string, group domain.Role) error {
	f.record("RemoveFromGroup", username, string(group))
	return f.removeErr
}

func (f *fakeProvider) UpdateUserAttributes(_ context.Context, accessToken string, attrs identity.Attributes) error {
	if attrs.IsEmpty() {
		return nil
	}
	f.record("UpdateUserAttributes", accessToken, *attrs.Name)
	return f.attrErr
}

func (f *fakeProvider) AdminUpdateUserAttributes(_ context.Context, username string, attrs identity.Attributes) error {
	if attrs.IsEmpty() {
		return nil
	}
	f.record("AdminUpdateUserAttributes", username, *attrs.Name)
	if f.onAdminUpdate != nil {
		f.onAdminUpdate()
	}
	return f.adminAttrErr
}

type fakeRecorder struct {
	mu       sync.Mutex
	failures []domain.SyncFailure
}

func (r *fakeRecorder) RecordSyncFailure(_ context.Context, f domain.SyncFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedProfile(t *testing.T, st *sqlite.Store, p domain.Profile) domain.Profile {
	t.Helper()

	saved, err := st.Profiles().Save(context.Background(), p)
	require.NoError(t, err)
	return saved
}

func ptr[T any](v T) *T { return &v }
