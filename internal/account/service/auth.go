package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/identity"
	"github.com/caveo-app/caveo-api/internal/account/store"
	"github.com/caveo-app/caveo-api/pkg/slogx"
)

// AuthService implements sign in or register against the identity provider.
type AuthService struct {
	Store    store.Store
	Provider identity.Provider
	Sync     SyncRecorder
	Metrics  AuthRecorder
}

// AuthRecorder counts sign in outcomes. *metrics.Metrics satisfies it.
type AuthRecorder interface {
	AuthAttempt(result string)
}

// SignInOrRegister signs in a known email, or registers it when there is no
// local profile yet. Tokens always come from a sign in so both branches share
// one token path.
func (s *AuthService) SignInOrRegister(ctx context.Context, email, password, name string) (domain.AuthResult, error) {
	res, err := s.signInOrRegister(ctx, email, password, name)
	if s.Metrics != nil {
		switch {
		case err != nil:
			s.Metrics.AuthAttempt("failed")
		case res.IsNewUser:
			s.Metrics.AuthAttempt("register")
		default:
			s.Metrics.AuthAttempt("signin")
		}
	}
	return res, err
}

func (s *AuthService) signInOrRegister(ctx context.Context, email, password, name string) (domain.AuthResult, error) {
	log := slogx.FromContext(ctx)

	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateCredentials(email, password); err != nil {
		return domain.AuthResult{}, err
	}

	existing, err := s.Store.Profiles().GetByEmail(ctx, email)
	switch {
	case err == nil:
		tokens, err := s.Provider.SignIn(ctx, email, password)
		if err != nil {
			return domain.AuthResult{}, err
		}
		log.Info("user signed in", slog.String("user_id", existing.ID))
		return domain.AuthResult{Profile: existing, Tokens: tokens}, nil

	case !errors.Is(err, store.ErrNotFound):
		log.Error("failed to look up profile by email", slog.Any("error", err))
		return domain.AuthResult{}, err
	}

	// Registration.
	if name == "" {
		return domain.AuthResult{}, domain.NewError(domain.ErrValidation, "Name is required for registration")
	}

	sub, err := s.Provider.SignUp(ctx, email, password, name)
	if err != nil {
		return domain.AuthResult{}, err
	}

	profile, err := s.Store.Profiles().Save(ctx, domain.NewProfile(sub, email, name))
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.AuthResult{}, domain.WrapError(domain.ErrEmailTaken, "Email already registered", err)
		}
		log.Error("failed to save new profile", slog.String("user_id", sub), slog.Any("error", err))
		return domain.AuthResult{}, err
	}

	if err := s.Provider.AddToGroup(ctx, email, domain.RoleUser); err != nil {
		recordSyncFailure(ctx, s.Sync, domain.SyncFailure{
			ProfileID: profile.ID,
			Username:  email,
			Kind:      domain.SyncGroup,
			Value:     string(domain.RoleUser),
			Err:       err,
			Op:        OpAddToGroup,
		})
	}

	tokens, err := s.Provider.SignIn(ctx, email, password)
	if err != nil {
		return domain.AuthResult{}, err
	}

	log.Info("user registered", slog.String("user_id", profile.ID))
	return domain.AuthResult{Profile: profile, Tokens: tokens, IsNewUser: true}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return domain.NewError(domain.ErrValidation, "Email and password are required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return domain.NewError(domain.ErrValidation, "Invalid email address")
	}
	return nil
}
