package http

import (
	"net/http"

	"github.com/caveo-app/caveo-api/internal/account/service"
	"github.com/caveo-app/caveo-api/pkg/accountsdk"
	"github.com/caveo-app/caveo-api/pkg/httpx"
)

type AuthHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Sign in or register
//	@Description	Signs in a known email. An unknown email is registered (name required), added to the "user" group and signed in.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		accountsdk.AuthRequest		true	"Credentials"
//	@Success		200		{object}	accountsdk.AuthResponse		"message, user, tokens"
//	@Failure		400		{object}	accountsdk.ErrorResponse	"validation_error, weak_password, invalid_format"
//	@Failure		401		{object}	accountsdk.ErrorResponse	"invalid_credentials"
//	@Failure		403		{object}	accountsdk.ErrorResponse	"account_disabled"
//	@Failure		409		{object}	accountsdk.ErrorResponse	"email_taken"
//	@Failure		429		{object}	accountsdk.ErrorResponse	"rate_limited"
//	@Failure		500		{object}	accountsdk.ErrorResponse	"internal_error"
//	@Router			/auth [post].
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.AuthRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.AuthService.SignInOrRegister(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, r, err, "Authentication failed")
		return
	}

	msg := accountsdk.MessageSignedIn
	if res.IsNewUser {
		msg = accountsdk.MessageRegistered
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.AuthResponse{
		Message: msg,
		User:    toUserProfile(res.Profile),
		Tokens: accountsdk.Tokens{
			AccessToken:  res.Tokens.AccessToken,
			IDToken:      res.Tokens.IDToken,
			RefreshToken: res.Tokens.RefreshToken,
			ExpiresIn:    res.Tokens.ExpiresIn,
		},
	})
}
