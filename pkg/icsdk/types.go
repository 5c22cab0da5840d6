package icsdk

import (
	"time"

	"github.com/portlink/interconsulta/pkg/jwtx"
)

// ErrorResponse is the wire shape of every failure response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshRequest is the body of POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RevokeRequest is the body of POST /v1/auth/revoke. AccessToken is optional;
// when present its jti is denylisted until expiry.
type RevokeRequest struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token,omitempty"`
}

// CreateInterconsultaRequest opens a new draft.
type CreateInterconsultaRequest struct {
	Subject  string `json:"subject"`
	Category string `json:"category,omitempty"`
	Payload  string `json:"payload"`
}

// RespondRequest carries the reviewer's answer.
type RespondRequest struct {
	Response string `json:"response"`
}

// RejectRequest carries the mandatory rejection note.
type RejectRequest struct {
	Note string `json:"note"`
}

// TransitionEntry is one history record of an interconsulta.
type TransitionEntry struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	ActorID   string    `json:"actor_id"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Interconsulta is the wire representation of a request.
type Interconsulta struct {
	ID          string            `json:"id"`
	RequesterID string            `json:"requester_id"`
	ReviewerID  string            `json:"reviewer_id,omitempty"`
	Subject     string            `json:"subject"`
	Category    string            `json:"category,omitempty"`
	Payload     string            `json:"payload"`
	Response    string            `json:"response,omitempty"`
	Status      string            `json:"status"`
	Version     int64             `json:"version"`
	History     []TransitionEntry `json:"history,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// InterconsultaListResponse wraps a listing.
type InterconsultaListResponse struct {
	Items []Interconsulta `json:"items"`
}

// CreatePrincipalRequest registers a new account. Administrator only.
type CreatePrincipalRequest struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
	Role     string `json:"role"`
}

// SetRoleRequest reassigns a principal's role. Administrator only.
type SetRoleRequest struct {
	Role string `json:"role"`
}

// Principal is the wire representation of an account. The secret hash never
// leaves the server.
type Principal struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// HealthChecks itemizes dependency health in readiness responses.
type HealthChecks struct {
	Database string `json:"database,omitempty"`
	Signer   string `json:"signer,omitempty"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// JWKSResponse is the public key set served at /.well-known/jwks.json.
type JWKSResponse = jwtx.JWKS
