// Package identity defines the contract with the hosted identity provider
// that owns credentials, group membership and the canonical user attributes.
package identity

import (
	"context"

	"github.com/caveo-app/caveo-api/internal/account/domain"
)

// Provider is the subset of identity provider operations the account
// workflows depend on. Errors are *domain.Error values carrying one of the
// provider kinds (domain.ErrEmailTaken, domain.ErrInvalidCredentials, ...).
type Provider interface {
	// SignUp registers email/password and returns the new subject id.
	SignUp(ctx context.Context, email, password, name string) (string, error)

	// SignIn exchanges credentials for tokens.
	SignIn(ctx context.Context, email, password string) (domain.Tokens, error)

	// AddToGroup adds the user (username is the email) to a group named after role.
	AddToGroup(ctx context.Context, username string, group domain.Role) error

	// RemoveFromGroup drops the user from a group. Removing a user that is not
	// a member succeeds.
	RemoveFromGroup(ctx context.Context, username string, group domain.Role) error

	// UpdateUserAttributes updates the caller's own attributes using their
	// access token.
	UpdateUserAttributes(ctx context.Context, accessToken string, attrs Attributes) error

	// AdminUpdateUserAttributes updates another user's attributes with the
	// service's own credentials.
	AdminUpdateUserAttributes(ctx context.Context, username string, attrs Attributes) error
}

// Attributes is the set of user attributes the API writes. Nil fields are
// left untouched.
type Attributes struct {
	Name *string
}

func (a Attributes) IsEmpty() bool { return a.Name == nil }

// Named is shorthand for an attribute set carrying only a name.
func Named(name string) Attributes { return Attributes{Name: &name} }
