package accountsdk

// ============================================================================
// Authentication
// ============================================================================

// AuthRequest is the body of POST /auth. Name is only required when the email
// is not registered yet.
type AuthRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"Secret123!"`
	Name     string `json:"name,omitempty" example:"John Doe"`
}

// Tokens are the identity provider credentials, in the provider's casing.
type Tokens struct {
	AccessToken  string `json:"AccessToken"`
	IDToken      string `json:"IdToken"`
	RefreshToken string `json:"RefreshToken"`
	ExpiresIn    int32  `json:"ExpiresIn" example:"3600"`
}

// AuthResponse is returned by POST /auth.
type AuthResponse struct {
	// Message is "Registration successful" or "Login successful".
	Message string      `json:"message" example:"Login successful"`
	User    UserProfile `json:"user"`
	Tokens  Tokens      `json:"tokens"`
}

const (
	MessageRegistered = "Registration successful"
	MessageSignedIn   = "Login successful"
)

// ============================================================================
// Profiles
// ============================================================================

// UserProfile is the public view of a profile.
type UserProfile struct {
	ID          string `json:"id" example:"7d3c1e0a-5b7f-4c1e-9a59-2f4bb0d1c001"`
	Email       string `json:"email" example:"user@example.com"`
	Name        string `json:"name" example:"John Doe"`
	Role        string `json:"role" enums:"user,admin" example:"user"`
	IsOnboarded bool   `json:"isOnboarded"`
}

// MeResponse is the claims view returned by GET /account/me.
type MeResponse struct {
	ID       string   `json:"id" example:"7d3c1e0a-5b7f-4c1e-9a59-2f4bb0d1c001"`
	Email    string   `json:"email" example:"user@example.com"`
	Name     string   `json:"name" example:"John Doe"`
	Groups   []string `json:"groups" example:"user"`
	TokenUse string   `json:"tokenUse" example:"id"`
	AuthTime int64    `json:"authTime" example:"1735689600"`
	Exp      int64    `json:"exp" example:"1735693200"`
}

// EditProfileRequest is the body of PUT /account/edit. Absent fields are left
// unchanged; UserID targets another profile and is honoured for admins only.
type EditProfileRequest struct {
	UserID *string `json:"userId,omitempty" example:"7d3c1e0a-5b7f-4c1e-9a59-2f4bb0d1c002"`
	Name   *string `json:"name,omitempty" example:"Jane Doe"`
	Role   *string `json:"role,omitempty" enums:"user,admin" example:"user"`
}

// EditProfileResponse is returned by PUT /account/edit.
type EditProfileResponse struct {
	Message string      `json:"message" example:"Profile updated successfully"`
	User    UserProfile `json:"user"`
}

const MessageProfileUpdated = "Profile updated successfully"

// ============================================================================
// Errors and health
// ============================================================================

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error" example:"forbidden"`
	Message string `json:"message" example:"You can only edit your own profile"`
}

// HealthChecks reports individual dependency status.
type HealthChecks struct {
	Database string `json:"database"`
}

// HealthResponse is returned by GET /health and GET /ready.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime" example:"1h2m3s"`
	Version string        `json:"version" example:"dev"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
