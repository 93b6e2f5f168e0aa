// Package accountsdk is a typed Go client for the account API. Its types are
// also the wire types used by the server handlers.
package accountsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the account API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10 second timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SignInOrRegister calls POST /auth.
func (c *Client) SignInOrRegister(ctx context.Context, req AuthRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me calls GET /account/me with an ID token.
func (c *Client) Me(ctx context.Context, idToken string) (*MeResponse, error) {
	var out MeResponse
	if err := c.call(ctx, http.MethodGet, "/account/me", idToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditProfile calls PUT /account/edit with an access token.
func (c *Client) EditProfile(ctx context.Context, accessToken string, req EditProfileRequest) (*EditProfileResponse, error) {
	var out EditProfileResponse
	if err := c.call(ctx, http.MethodPut, "/account/edit", accessToken, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers calls GET /users. The token must belong to an admin.
func (c *Client) ListUsers(ctx context.Context, token string) ([]UserProfile, error) {
	var out []UserProfile
	if err := c.call(ctx, http.MethodGet, "/users", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.call(ctx, http.MethodGet, "/health", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready calls GET /ready. A degraded service returns an *APIError with status 503.
func (c *Client) Ready(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.call(ctx, http.MethodGet, "/ready", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	headers := map[string]string{"Accept": "application/json"}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
		headers["Content-Type"] = "application/json"
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	resp, err := c.doRequest(ctx, method, path, body, headers)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, http.StatusOK)
}
