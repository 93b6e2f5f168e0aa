package http

import (
	"errors"
	"net/http"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/pkg/accountsdk"
	"github.com/caveo-app/caveo-api/pkg/slogx"
)

// writeServiceError maps a workflow error to a status and {error, message}
// body. Anything unclassified becomes a 500 carrying fallback, never the
// underlying error text.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, code := classify(err)
	msg := domain.Message(err, fallback)

	if status == http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error(fallback, "err", err)
		msg = fallback
	}

	accountsdk.NewAPIError(status, code, msg).WriteError(w)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, accountsdk.CodeUnauthorized
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, accountsdk.CodeInvalidCredentials
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, accountsdk.CodeForbidden
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusForbidden, accountsdk.CodeAccountDisabled
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, accountsdk.CodeNotFound
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, accountsdk.CodeEmailTaken
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, accountsdk.CodeConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, accountsdk.CodeValidation
	case errors.Is(err, domain.ErrWeakPassword):
		return http.StatusBadRequest, accountsdk.CodeWeakPassword
	case errors.Is(err, domain.ErrInvalidFormat):
		return http.StatusBadRequest, accountsdk.CodeInvalidFormat
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, accountsdk.CodeRateLimited
	default:
		return http.StatusInternalServerError, accountsdk.CodeInternal
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	accountsdk.NewAPIError(http.StatusBadRequest, accountsdk.CodeBadRequest, msg).WriteError(w)
}
