package httpx

import (
	"net/http"
)

// RequireAnyGroup the caller must belong to at least one of the provided
// identity provider groups. Must run after AuthnMiddleware.
func RequireAnyGroup(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			for _, g := range required {
				if claims.HasGroup(g) {
					next.ServeHTTP(w, r)
					return
				}
			}

			WriteError(w, http.StatusForbidden, "forbidden", "Insufficient permissions")
		})
	}
}
