package http

import (
	"net/http"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/service"
	"github.com/caveo-app/caveo-api/pkg/accountsdk"
	"github.com/caveo-app/caveo-api/pkg/httpx"
)

// MeHandler godoc
//
//	@Summary		Current user
//	@Description	Returns the identity carried by the caller's ID token.
//	@Tags			Account
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	accountsdk.MeResponse		"id, email, name, groups, tokenUse, authTime, exp"
//	@Failure		401	{object}	accountsdk.ErrorResponse	"missing, invalid or expired token, or not an ID token"
//	@Router			/account/me [get].
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpx.ClaimsFromContext(r.Context())
		if !ok {
			accountsdk.NewAPIError(http.StatusUnauthorized, accountsdk.CodeUnauthorized, "User not authenticated").WriteError(w)
			return
		}

		resp := accountsdk.MeResponse{
			ID:       claims.Subject,
			Email:    claims.Email,
			Name:     claims.Name,
			Groups:   claims.Groups,
			TokenUse: claims.TokenUse,
			AuthTime: claims.AuthTime,
		}
		if resp.Groups == nil {
			resp.Groups = []string{}
		}
		if claims.ExpiresAt != nil {
			resp.Exp = claims.ExpiresAt.Unix()
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}

type EditProfileHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP godoc
//
//	@Summary		Edit profile
//	@Description	Users can edit their own name. Admins can edit the name and role of any user via userId, but cannot demote themselves.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		accountsdk.EditProfileRequest	true	"Fields to change"
//	@Success		200		{object}	accountsdk.EditProfileResponse	"message, user"
//	@Failure		400		{object}	accountsdk.ErrorResponse		"malformed body or unknown role"
//	@Failure		401		{object}	accountsdk.ErrorResponse		"missing, invalid or expired token, or not an access token"
//	@Failure		403		{object}	accountsdk.ErrorResponse		"forbidden"
//	@Failure		404		{object}	accountsdk.ErrorResponse		"not_found"
//	@Failure		500		{object}	accountsdk.ErrorResponse		"internal_error"
//	@Router			/account/edit [put].
func (h *EditProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok {
		accountsdk.NewAPIError(http.StatusUnauthorized, accountsdk.CodeUnauthorized, "User not authenticated").WriteError(w)
		return
	}

	var req accountsdk.EditProfileRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	change := domain.ProfileChange{
		TargetUserID: req.UserID,
		Name:         req.Name,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		change.Role = &role
	}

	caller := domain.Caller{
		ID:      claims.Subject,
		IsAdmin: claims.HasGroup(string(domain.RoleAdmin)),
	}

	p, err := h.AccountService.UpdateProfile(ctx, caller, httpx.TokenFromContext(ctx), change)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update profile")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.EditProfileResponse{
		Message: accountsdk.MessageProfileUpdated,
		User:    toUserProfile(p),
	})
}

type UsersHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP godoc
//
//	@Summary		List users
//	@Description	Lists every profile, oldest first. Admin only.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		accountsdk.UserProfile
//	@Failure		401	{object}	accountsdk.ErrorResponse	"unauthorized"
//	@Failure		403	{object}	accountsdk.ErrorResponse	"forbidden"
//	@Failure		500	{object}	accountsdk.ErrorResponse	"internal_error"
//	@Router			/users [get].
func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.AccountService.ListProfiles(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to list users")
		return
	}

	out := make([]accountsdk.UserProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toUserProfile(p))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func toUserProfile(p domain.Profile) accountsdk.UserProfile {
	pub := p.Public()
	return accountsdk.UserProfile{
		ID:          pub.ID,
		Email:       pub.Email,
		Name:        pub.Name,
		Role:        string(pub.Role),
		IsOnboarded: pub.IsOnboarded,
	}
}
