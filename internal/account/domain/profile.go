package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts the two known roles, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", NewError(ErrValidation, "role must be one of: user, admin")
	}
}

func (r Role) String() string { return string(r) }

// Profile is the local mirror of an identity provider account. ID is the
// provider's subject identifier and never changes.
type Profile struct {
	ID          string
	Email       string
	Name        string
	Role        Role
	IsOnboarded bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time // soft delete, never set by the workflows
}

// NewProfile builds an unsaved profile for a freshly registered subject.
func NewProfile(id, email, name string) Profile {
	return Profile{
		ID:          id,
		Email:       email,
		Name:        name,
		Role:        RoleUser,
		IsOnboarded: false,
	}
}

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

// PublicProfile is the outward view of a profile.
type PublicProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        Role   `json:"role"`
	IsOnboarded bool   `json:"isOnboarded"`
}

func (p Profile) Public() PublicProfile {
	return PublicProfile{
		ID:          p.ID,
		Email:       p.Email,
		Name:        p.Name,
		Role:        p.Role,
		IsOnboarded: p.IsOnboarded,
	}
}

// Caller is who is asking, as far as authorization is concerned.
type Caller struct {
	ID      string
	IsAdmin bool
}

// ProfileChange is a field level change set. Nil fields are left untouched,
// a nil TargetUserID means the caller's own profile.
type ProfileChange struct {
	TargetUserID *string
	Name         *string
	Role         *Role
}

// Tokens are the credentials issued by the identity provider on sign in.
type Tokens struct {
	AccessToken  string `json:"AccessToken"`
	IDToken      string `json:"IdToken"`
	RefreshToken string `json:"RefreshToken"`
	ExpiresIn    int32  `json:"ExpiresIn"`
}

type AuthResult struct {
	Profile   Profile
	Tokens    Tokens
	IsNewUser bool
}
