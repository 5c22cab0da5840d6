package icsdk

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

// Client talks to the interconsulta service. Unauthenticated operations live
// here; Login returns a Session for everything that needs a token.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a sane default timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login authenticates and returns a Session holding the token pair.
func (c *Client) Login(ctx context.Context, username, secret string) (*Session, error) {
	var tokens TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", "",
		LoginRequest{Username: username, Secret: secret}, &tokens)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}

// Refresh exchanges a refresh token for a fresh pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	var tokens TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/auth/refresh", "",
		RefreshRequest{RefreshToken: refreshToken}, &tokens)
	return tokens, err
}

// Revoke invalidates a refresh token and optionally denylists the matching
// access token.
func (c *Client) Revoke(ctx context.Context, refreshToken, accessToken string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/revoke", "",
		RevokeRequest{RefreshToken: refreshToken, AccessToken: accessToken}, nil)
}

// JWKS fetches the public verification keys.
func (c *Client) JWKS(ctx context.Context) (JWKSResponse, error) {
	var jwks JWKSResponse
	err := c.doJSON(ctx, http.MethodGet, "/.well-known/jwks.json", "", nil, &jwks)
	return jwks, err
}

// Livez probes liveness.
func (c *Client) Livez(ctx context.Context) (HealthResponse, error) {
	var health HealthResponse
	err := c.doJSON(ctx, http.MethodGet, "/livez", "", nil, &health)
	return health, err
}

// Readyz probes readiness, including dependency checks.
func (c *Client) Readyz(ctx context.Context) (HealthResponse, error) {
	var health HealthResponse
	err := c.doJSON(ctx, http.MethodGet, "/readyz", "", nil, &health)
	return health, err
}

// doJSON performs one JSON request/response round trip. A non-2xx status
// comes back as *APIError.
func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("icsdk: marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("icsdk: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("icsdk: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("icsdk: read response: %w", err)
	}

	if err := parseErrorResponse(resp, raw); err != nil {
		return err
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("icsdk: decode response: %w", err)
		}
	}
	return nil
}
