package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/identity"
	"github.com/caveo-app/caveo-api/internal/account/store"
	"github.com/caveo-app/caveo-api/pkg/slogx"
)

// AccountService implements profile reads and the profile authorization and
// mutation workflow.
type AccountService struct {
	Store    store.Store
	Provider identity.Provider
	Sync     SyncRecorder
	Metrics  UpdateRecorder
}

// UpdateRecorder counts profile update outcomes. *metrics.Metrics satisfies it.
type UpdateRecorder interface {
	ProfileUpdated(result string)
}

// GetAccountDetails returns the profile with the given id.
func (s *AccountService) GetAccountDetails(ctx context.Context, id string) (domain.Profile, error) {
	p, err := s.Store.Profiles().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Profile{}, domain.NewError(domain.ErrNotFound, "User not found")
		}
		return domain.Profile{}, err
	}
	return p, nil
}

// ListProfiles returns every live profile, oldest first.
func (s *AccountService) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	return s.Store.Profiles().List(ctx)
}

// UpdateProfile applies change on behalf of caller. Every authorization check
// runs before the single store write; identity provider writes follow the
// save and their failures are handed to the SyncRecorder, never returned.
//
// accessToken is the caller's own access token; it is only used to sync the
// name when the caller edits themself.
func (s *AccountService) UpdateProfile(
	ctx context.Context,
	caller domain.Caller,
	accessToken string,
	change domain.ProfileChange,
) (domain.Profile, error) {
	p, err := s.updateProfile(ctx, caller, accessToken, change)
	s.recordUpdate(err)
	return p, err
}

func (s *AccountService) updateProfile(
	ctx context.Context,
	caller domain.Caller,
	accessToken string,
	change domain.ProfileChange,
) (domain.Profile, error) {
	log := slogx.FromContext(ctx).With(slog.String("caller_id", caller.ID))

	// 1. Resolve the target. Non-admins are rejected before any lookup so they
	// cannot enumerate other ids.
	targetID := caller.ID
	if change.TargetUserID != nil && *change.TargetUserID != "" {
		if !caller.IsAdmin && *change.TargetUserID != caller.ID {
			log.Warn("non-admin attempted to edit another profile",
				slog.String("target_id", *change.TargetUserID))
			return domain.Profile{}, domain.NewError(domain.ErrForbidden, "You can only edit your own profile")
		}
		targetID = *change.TargetUserID
	}
	self := targetID == caller.ID

	// 2. Load it.
	target, err := s.Store.Profiles().GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Profile{}, domain.NewError(domain.ErrNotFound, "User not found")
		}
		log.Error("failed to load profile", slog.String("target_id", targetID), slog.Any("error", err))
		return domain.Profile{}, err
	}

	// 3. Only admins may touch roles.
	if change.Role != nil && !caller.IsAdmin {
		log.Warn("non-admin attempted to change role")
		return domain.Profile{}, domain.NewError(domain.ErrForbidden, "You do not have permission to change roles")
	}

	var role domain.Role
	if change.Role != nil {
		if role, err = domain.ParseRole(string(*change.Role)); err != nil {
			return domain.Profile{}, err
		}
	}

	// 4. An admin cannot demote themself, whatever else is being changed.
	if self && role == domain.RoleUser && target.Role == domain.RoleAdmin {
		log.Warn("admin attempted to demote themself")
		return domain.Profile{}, domain.NewError(domain.ErrForbidden, "You cannot demote yourself from admin")
	}

	// 5. Name; the first one set completes onboarding and it never reverts.
	var name string
	if change.Name != nil {
		name = strings.TrimSpace(*change.Name)
	}
	if name != "" {
		target.Name = name
		target.IsOnboarded = true
	}

	// 6. Role.
	previous := target.Role
	if role != "" {
		target.Role = role
	}

	// 7. Persist.
	saved, err := s.Store.Profiles().Save(ctx, target)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Profile{}, domain.WrapError(domain.ErrConflict, "Profile conflicts with an existing account", err)
		}
		log.Error("failed to save profile", slog.String("target_id", targetID), slog.Any("error", err))
		return domain.Profile{}, err
	}

	// 8. Best-effort identity provider sync.
	if role != "" {
		if op, err := syncGroup(ctx, s.Provider, saved.Email, role, previous); err != nil {
			recordSyncFailure(ctx, s.Sync, domain.SyncFailure{
				ProfileID: saved.ID,
				Username:  saved.Email,
				Kind:      domain.SyncGroup,
				Value:     string(role),
				Err:       err,
				Op:        op,
			})
		}
	}
	if name != "" {
		var err error
		op := OpAdminUpdateAttributes
		if self && accessToken != "" {
			op = OpUpdateAttributes
			err = s.Provider.UpdateUserAttributes(ctx, accessToken, identity.Named(name))
		} else {
			err = s.Provider.AdminUpdateUserAttributes(ctx, saved.Email, identity.Named(name))
		}
		if err != nil {
			recordSyncFailure(ctx, s.Sync, domain.SyncFailure{
				ProfileID: saved.ID,
				Username:  saved.Email,
				Kind:      domain.SyncName,
				Value:     name,
				Err:       err,
				Op:        op,
			})
		}
	}

	log.Info("profile updated",
		slog.String("target_id", saved.ID),
		slog.Bool("name_changed", name != ""),
		slog.String("role", string(saved.Role)),
	)
	return saved, nil
}

// syncGroup puts the user in the group named after role and, when the role
// changed, takes them out of the previous one. On failure it also returns the
// operation that failed.
func syncGroup(ctx context.Context, p identity.Provider, username string, role, previous domain.Role) (string, error) {
	if err := p.AddToGroup(ctx, username, role); err != nil {
		return OpAddToGroup, err
	}
	if previous != "" && previous != role {
		if err := p.RemoveFromGroup(ctx, username, previous); err != nil {
			return OpRemoveFromGroup, err
		}
	}
	return "", nil
}

func (s *AccountService) recordUpdate(err error) {
	if s.Metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.Metrics.ProfileUpdated("ok")
	case errors.Is(err, domain.ErrForbidden):
		s.Metrics.ProfileUpdated("forbidden")
	case errors.Is(err, domain.ErrNotFound):
		s.Metrics.ProfileUpdated("not_found")
	case errors.Is(err, domain.ErrValidation):
		s.Metrics.ProfileUpdated("invalid")
	default:
		s.Metrics.ProfileUpdated("error")
	}
}
