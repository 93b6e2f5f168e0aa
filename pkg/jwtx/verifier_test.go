package jwtx_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/caveo-app/caveo-api/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_test"
	testClientID = "client-123"
)

type testIssuerKeys struct {
	kid  string
	priv *rsa.PrivateKey
}

func newTestKeys(t *testing.T, kid string) testIssuerKeys {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return testIssuerKeys{kid: kid, priv: priv}
}

func (k testIssuerKeys) sign(t *testing.T, claims jwtx.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = k.kid
	s, err := tok.SignedString(k.priv)
	require.NoError(t, err)
	return s
}

func accessClaims(sub string, ttl time.Duration) jwtx.Claims {
	now := time.Now().UTC()
	return jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenUse: jwtx.TokenUseAccess,
		ClientID: testClientID,
		Groups:   []string{"admin"},
		AuthTime: now.Unix(),
	}
}

func TestCognitoVerifier_Verify(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t, "kid-1")
	ks := jwtx.NewKeySet()
	require.NoError(t, ks.AddJWK(jwtx.NewRSAJWK(keys.kid, &keys.priv.PublicKey)))

	v := jwtx.NewCognitoVerifier(ks, jwtx.VerifyOptions{Issuer: testIssuer, ClientID: testClientID})

	t.Run("valid access token", func(t *testing.T) {
		claims, err := v.Verify(t.Context(), keys.sign(t, accessClaims("sub-1", time.Hour)))
		require.NoError(t, err)
		require.Equal(t, "sub-1", claims.Subject)
		require.Equal(t, jwtx.TokenUseAccess, claims.TokenUse)
		require.True(t, claims.HasGroup("admin"))
	})

	t.Run("valid id token", func(t *testing.T) {
		c := accessClaims("sub-2", time.Hour)
		c.TokenUse = jwtx.TokenUseID
		c.ClientID = ""
		c.Audience = jwt.ClaimStrings{testClientID}
		c.Email = "ada@example.com"
		c.Name = "Ada"

		claims, err := v.Verify(t.Context(), keys.sign(t, c))
		require.NoError(t, err)
		require.Equal(t, "ada@example.com", claims.Email)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := v.Verify(t.Context(), keys.sign(t, accessClaims("sub-1", -time.Minute)))
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := accessClaims("sub-1", time.Hour)
		c.Issuer = "https://evil.example.com"
		_, err := v.Verify(t.Context(), keys.sign(t, c))
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong client", func(t *testing.T) {
		c := accessClaims("sub-1", time.Hour)
		c.ClientID = "someone-else"
		_, err := v.Verify(t.Context(), keys.sign(t, c))
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("refresh token use", func(t *testing.T) {
		c := accessClaims("sub-1", time.Hour)
		c.TokenUse = "refresh"
		_, err := v.Verify(t.Context(), keys.sign(t, c))
		require.ErrorIs(t, err, jwtx.ErrTokenUse)
	})

	t.Run("unknown kid", func(t *testing.T) {
		other := newTestKeys(t, "kid-other")
		_, err := v.Verify(t.Context(), other.sign(t, accessClaims("sub-1", time.Hour)))
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("signature from another key with known kid", func(t *testing.T) {
		forged := newTestKeys(t, "kid-1")
		_, err := v.Verify(t.Context(), forged.sign(t, accessClaims("sub-1", time.Hour)))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := v.Verify(t.Context(), "not-a-jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)

		_, err = v.Verify(t.Context(), "")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("HS256 rejected", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims("sub-1", time.Hour))
		tok.Header["kid"] = "kid-1"
		s, err := tok.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = v.Verify(t.Context(), s)
		require.Error(t, err)
	})
}

func TestRemoteKeySet(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t, "kid-1")
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwtx.JWKS{Keys: []jwtx.JWK{jwtx.NewRSAJWK(keys.kid, &keys.priv.PublicKey)}})
	}))
	t.Cleanup(srv.Close)

	remote := jwtx.NewRemoteKeySet(srv.URL, jwtx.WithCacheTTL(time.Minute), jwtx.WithMinRefresh(time.Hour))
	v := jwtx.NewCognitoVerifier(remote, jwtx.VerifyOptions{Issuer: testIssuer})

	t.Run("fetches once and caches", func(t *testing.T) {
		for range 3 {
			_, err := v.Verify(t.Context(), keys.sign(t, accessClaims("sub-1", time.Hour)))
			require.NoError(t, err)
		}
		require.Equal(t, int32(1), hits.Load())
	})

	t.Run("unknown kid does not refetch within min refresh", func(t *testing.T) {
		other := newTestKeys(t, "kid-2")
		_, err := v.Verify(t.Context(), other.sign(t, accessClaims("sub-1", time.Hour)))
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
		require.Equal(t, int32(1), hits.Load())
	})
}

func TestRemoteKeySet_Unavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	keys := newTestKeys(t, "kid-1")
	v := jwtx.NewCognitoVerifier(jwtx.NewRemoteKeySet(srv.URL), jwtx.VerifyOptions{})

	_, err := v.Verify(t.Context(), keys.sign(t, accessClaims("sub-1", time.Hour)))
	require.ErrorIs(t, err, jwtx.ErrKeysUnavail)
}

func TestCognitoURLs(t *testing.T) {
	iss := jwtx.CognitoIssuer("eu-west-1", "eu-west-1_abc")
	require.Equal(t, "https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_abc", iss)
	require.Equal(t, iss+"/.well-known/jwks.json", jwtx.JWKSURL(iss))
}
