package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/caveo-app/caveo-api/pkg/jwtx"
	"github.com/caveo-app/caveo-api/pkg/slogx"
)

// AuthnMiddleware verifies the bearer token and, when tokenUse is not empty,
// insists on that token class ("id" or "access").
func AuthnMiddleware(v jwtx.Verifier, tokenUse string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(ctx, raw)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					writeBearerError(w, "token expired")
					return
				}
				log.Warn("jwt verify failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			if tokenUse != "" && claims.TokenUse != tokenUse {
				writeBearerError(w, "invalid token use, "+tokenUse+" token required")
				return
			}

			ctx = contextWithAuth(ctx, raw, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 challenge plus the usual {error, message} body.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized", desc)
}
