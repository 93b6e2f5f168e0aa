package accountsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignInOrRegister(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Empty(t, r.Header.Get("Authorization"))

		var req AuthRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ada@example.com", req.Email)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(AuthResponse{
			Message: MessageRegistered,
			User:    UserProfile{ID: "sub-1", Email: req.Email, Name: req.Name, Role: "user"},
			Tokens:  Tokens{AccessToken: "a", IDToken: "i", RefreshToken: "r", ExpiresIn: 3600},
		})
	}))
	t.Cleanup(srv.Close)

	resp, err := NewClient(srv.URL+"/").SignInOrRegister(context.Background(), AuthRequest{
		Email: "ada@example.com", Password: "pw", Name: "Ada",
	})
	require.NoError(t, err)
	require.Equal(t, MessageRegistered, resp.Message)
	require.Equal(t, "i", resp.Tokens.IDToken)
	require.Equal(t, "Ada", resp.User.Name)
}

func TestTokensWireNames(t *testing.T) {
	b, err := json.Marshal(Tokens{AccessToken: "a", IDToken: "i", RefreshToken: "r", ExpiresIn: 60})
	require.NoError(t, err)
	require.JSONEq(t, `{"AccessToken":"a","IdToken":"i","RefreshToken":"r","ExpiresIn":60}`, string(b))
}

func TestEditProfileSendsBearer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "Bearer access-tok", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, map[string]any{"name": "Jane"}, req)

		_ = json.NewEncoder(w).Encode(EditProfileResponse{
			Message: MessageProfileUpdated,
			User:    UserProfile{ID: "u1", Name: "Jane", IsOnboarded: true},
		})
	}))
	t.Cleanup(srv.Close)

	name := "Jane"
	resp, err := NewClient(srv.URL).EditProfile(context.Background(), "access-tok", EditProfileRequest{Name: &name})
	require.NoError(t, err)
	require.True(t, resp.User.IsOnboarded)
}

func TestErrorResponses(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /account/me", func(w http.ResponseWriter, r *http.Request) {
		NewAPIError(http.StatusUnauthorized, CodeUnauthorized, "token expired").WriteError(w)
	})
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		NewAPIError(http.StatusForbidden, CodeForbidden, "Insufficient permissions").WriteError(w)
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "degraded", Checks: &HealthChecks{Database: "error: closed"}})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream gone", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	ctx := context.Background()

	_, err := c.Me(ctx, "expired")
	require.Equal(t, http.StatusUnauthorized, StatusCode(err))
	require.True(t, HasCode(err, CodeUnauthorized))
	require.ErrorContains(t, err, "token expired")

	_, err = c.ListUsers(ctx, "user-token")
	require.Equal(t, http.StatusForbidden, StatusCode(err))

	_, err = c.Ready(ctx)
	require.True(t, HasCode(err, "degraded"))

	_, err = c.Health(ctx)
	require.Equal(t, http.StatusBadGateway, StatusCode(err))
	require.True(t, HasCode(err, "bad_gateway"))
}
