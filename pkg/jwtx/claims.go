package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token classes carried in the token_use claim.
const (
	TokenUseID     = "id"
	TokenUseAccess = "access"
)

// Claims are the Cognito user pool token claims we care about. ID tokens
// carry email and name and put the app client in aud; access tokens carry
// client_id and username instead.
type Claims struct {
	jwt.RegisteredClaims

	TokenUse string   `json:"token_use"`
	Groups   []string `json:"cognito:groups,omitempty"`
	AuthTime int64    `json:"auth_time,omitempty"`

	// ID token only
	Email           string `json:"email,omitempty"`
	EmailVerified   bool   `json:"email_verified,omitempty"`
	Name            string `json:"name,omitempty"`
	CognitoUsername string `json:"cognito:username,omitempty"`

	// Access token only
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"username,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// HasGroup reports whether the caller belongs to group.
func (c *Claims) HasGroup(group string) bool {
	return slices.Contains(c.Groups, group)
}

// AuthTimeUTC returns auth_time as a time, or zero when absent.
func (c *Claims) AuthTimeUTC() time.Time {
	if c.AuthTime == 0 {
		return time.Time{}
	}
	return time.Unix(c.AuthTime, 0).UTC()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateTokenUse checks token_use is one of the two Cognito classes.
func (c *Claims) ValidateTokenUse() error {
	switch c.TokenUse {
	case TokenUseID, TokenUseAccess:
		return nil
	default:
		return ErrTokenUse
	}
}

// ValidateClient checks the token was minted for clientID: aud for ID tokens,
// client_id for access tokens.
func (c *Claims) ValidateClient(clientID string) error {
	if clientID == "" {
		return nil
	}

	switch c.TokenUse {
	case TokenUseID:
		if slices.Contains(c.Audience, clientID) {
			return nil
		}
	case TokenUseAccess:
		if c.ClientID == clientID {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
