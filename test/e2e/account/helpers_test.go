package account_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	httpapi "github.com/caveo-app/caveo-api/internal/account/http"
	"github.com/caveo-app/caveo-api/internal/account/identity"
	"github.com/caveo-app/caveo-api/internal/account/metrics"
	"github.com/caveo-app/caveo-api/internal/account/service"
	"github.com/caveo-app/caveo-api/internal/account/store/drivers/sqlite"
	"github.com/caveo-app/caveo-api/pkg/accountsdk"
	"github.com/caveo-app/caveo-api/pkg/httpx"
	"github.com/caveo-app/caveo-api/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

/*
 * End-to-end harness: the real router, services, sqlite store and JWKS
 * verifier, in front of an in-memory user pool that signs RS256 tokens the
 * way a Cognito pool does.
 */

const (
	testIssuer   = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_e2e"
	testClientID = "e2e-client"
	testKID      = "e2e-kid-1"
	testPassword = "Secret123!"
)

type poolUser struct {
	sub      string
	password string
	name     string
	groups   []string
}

// userPool implements identity.Provider and mints verifiable tokens.
type userPool struct {
	mu     sync.Mutex
	key    *rsa.PrivateKey
	users  map[string]*poolUser // by email
	access map[string]string    // access token -> email

	adminDown bool
}

var _ identity.Provider = (*userPool)(nil)

func newUserPool(t *testing.T) *userPool {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &userPool{key: key, users: map[string]*poolUser{}, access: map[string]string{}}
}

func (p *userPool) jwks() jwtx.JWKS {
	return jwtx.JWKS{Keys: []jwtx.JWK{jwtx.NewRSAJWK(testKID, &p.key.PublicKey)}}
}

func (p *userPool) SignUp(_ context.Context, email, password, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[email]; ok {
		return "", domain.NewError(domain.ErrEmailTaken, "Email already registered")
	}
	u := &poolUser{sub: uuid.NewString(), password: password, name: name}
	p.users[email] = u
	return u.sub, nil
}

func (p *userPool) SignIn(_ context.Context, email, password string) (domain.Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[email]
	if !ok || u.password != password {
		return domain.Tokens{}, domain.NewError(domain.ErrInvalidCredentials, "Invalid email or password")
	}

	now := time.Now().UTC()
	base := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   u.sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			ID:        uuid.NewString(),
		},
		Groups:   slices.Clone(u.groups),
		AuthTime: now.Unix(),
	}

	id := base
	id.TokenUse = jwtx.TokenUseID
	id.Audience = jwt.ClaimStrings{testClientID}
	id.Email = email
	id.Name = u.name

	access := base
	access.TokenUse = jwtx.TokenUseAccess
	access.ClientID = testClientID
	access.Username = email

	idToken, err := p.sign(id)
	if err != nil {
		return domain.Tokens{}, err
	}
	accessToken, err := p.sign(access)
	if err != nil {
		return domain.Tokens{}, err
	}
	p.access[accessToken] = email

	return domain.Tokens{AccessToken: accessToken, IDToken: idToken, RefreshToken: uuid.NewString(), ExpiresIn: 3600}, nil
}

func (p *userPool) sign(c jwtx.Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	tok.Header["kid"] = testKID
	return tok.SignedString(p.key)
}

func (p *userPool) AddToGroup(_ context.Context, username string, group domain.Role) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[username]
	if !ok {
		return domain.NewError(domain.ErrNotFound, "User not found")
	}
	if !slices.Contains(u.groups, string(group)) {
		u.groups = append(u.groups, string(group))
	}
	return nil
}

func (p *userPool) RemoveFromGroup(_ context.Context, username string, group domain.Role) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[username]
	if !ok {
		return domain.NewError(domain.ErrNotFound, "User not found")
	}
	u.groups = slices.DeleteFunc(u.groups, func(g string) bool { return g == string(group) })
	return nil
}

func (p *userPool) UpdateUserAttributes(_ context.Context, accessToken string, attrs identity.Attributes) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	email, ok := p.access[accessToken]
	if !ok {
		return domain.NewError(domain.ErrUnauthorized, "Invalid or expired access token")
	}
	if attrs.Name != nil {
		p.users[email].name = *attrs.Name
	}
	return nil
}

func (p *userPool) AdminUpdateUserAttributes(_ context.Context, username string, attrs identity.Attributes) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adminDown {
		return domain.NewError(domain.ErrProvider, "Failed to update user attributes")
	}
	u, ok := p.users[username]
	if !ok {
		return domain.NewError(domain.ErrNotFound, "User not found")
	}
	if attrs.Name != nil {
		u.name = *attrs.Name
	}
	return nil
}

func (p *userPool) setAdminDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adminDown = down
}

func (p *userPool) user(email string) poolUser {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := *p.users[email]
	u.groups = slices.Clone(u.groups)
	return u
}

type env struct {
	pool       *userPool
	store      *sqlite.Store
	reconciler *service.Reconciler
	client     *accountsdk.Client
	baseURL    string
}

// setupEnv wires the whole stack and returns an SDK client pointed at it.
func setupEnv(t *testing.T) *env {
	t.Helper()

	pool := newUserPool(t)

	jwksSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pool.jwks())
	}))
	t.Cleanup(jwksSrv.Close)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &service.SyncSink{Store: st, Metrics: m}

	verifier := jwtx.NewCognitoVerifier(
		jwtx.NewRemoteKeySet(jwksSrv.URL, jwtx.WithHTTPClient(jwksSrv.Client())),
		jwtx.VerifyOptions{Issuer: testIssuer, ClientID: testClientID, Leeway: 30 * time.Second},
	)

	limits := httpx.DefaultRateLimits()
	limits.Strict = httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Verifier:     verifier,
		Store:        st,
		Logger:       logger,
		Metrics:      m,
		RateLimits:   limits,
		CORS:         httpx.DefaultCORSConfig([]string{"*"}),
		BuildVersion: "e2e",
	})
	router.AuthService = &service.AuthService{Store: st, Provider: pool, Sync: sink, Metrics: m}
	router.AccountService = &service.AccountService{Store: st, Provider: pool, Sync: sink, Metrics: m}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	rec := service.NewReconciler(st, pool, logger, time.Hour, 10, 3)
	rec.Metrics = m

	return &env{
		pool:       pool,
		store:      st,
		reconciler: rec,
		client:     accountsdk.NewClient(srv.URL),
		baseURL:    srv.URL,
	}
}

// register signs up a new user and returns the response.
func (e *env) register(t *testing.T, email, name string) *accountsdk.AuthResponse {
	t.Helper()
	resp, err := e.client.SignInOrRegister(t.Context(), accountsdk.AuthRequest{Email: email, Password: testPassword, Name: name})
	require.NoError(t, err)
	require.Equal(t, accountsdk.MessageRegistered, resp.Message)
	return resp
}

func (e *env) signIn(t *testing.T, email string) *accountsdk.AuthResponse {
	t.Helper()
	resp, err := e.client.SignInOrRegister(t.Context(), accountsdk.AuthRequest{Email: email, Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, accountsdk.MessageSignedIn, resp.Message)
	return resp
}

// bootstrapAdmin registers a user, promotes them out of band the way an
// operator would, and returns fresh tokens carrying the admin group.
func (e *env) bootstrapAdmin(t *testing.T, email, name string) *accountsdk.AuthResponse {
	t.Helper()
	reg := e.register(t, email, name)

	p, err := e.store.Profiles().GetByID(t.Context(), reg.User.ID)
	require.NoError(t, err)
	p.Role = domain.RoleAdmin
	_, err = e.store.Profiles().Save(t.Context(), p)
	require.NoError(t, err)
	require.NoError(t, e.pool.AddToGroup(t.Context(), email, domain.RoleAdmin))

	return e.signIn(t, email)
}
