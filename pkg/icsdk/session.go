package icsdk

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Session is an authenticated client. It refreshes its access token
// transparently when it nears expiry and is safe for concurrent use.
type Session struct {
	client *Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

func newSession(c *Client, tokens TokenResponse) *Session {
	return &Session{
		client:       c,
		accessToken:  tokens.AccessToken,
		refreshToken: tokens.RefreshToken,
		// Refresh slightly early so in-flight requests don't race expiry.
		expiresAt: time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - 30*time.Second),
	}
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// token returns a live access token, rotating the pair first if needed.
func (s *Session) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", err
	}

	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - 30*time.Second)
	return s.accessToken, nil
}

// Logout revokes both tokens of this session.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refresh, access := s.refreshToken, s.accessToken
	s.mu.Unlock()
	return s.client.Revoke(ctx, refresh, access)
}

func (s *Session) do(ctx context.Context, method, path string, in, out any) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}
	return s.client.doJSON(ctx, method, path, token, in, out)
}

// CreateInterconsulta opens a new draft.
func (s *Session) CreateInterconsulta(ctx context.Context, req CreateInterconsultaRequest) (Interconsulta, error) {
	var out Interconsulta
	err := s.do(ctx, http.MethodPost, "/v1/interconsultas", req, &out)
	return out, err
}

// GetInterconsulta fetches one request with its history.
func (s *Session) GetInterconsulta(ctx context.Context, id string) (Interconsulta, error) {
	var out Interconsulta
	err := s.do(ctx, http.MethodGet, "/v1/interconsultas/"+url.PathEscape(id), nil, &out)
	return out, err
}

// ListInterconsultas lists the requests visible to the caller. status is
// optional; pass "" for no filter.
func (s *Session) ListInterconsultas(ctx context.Context, status string) ([]Interconsulta, error) {
	path := "/v1/interconsultas"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out InterconsultaListResponse
	err := s.do(ctx, http.MethodGet, path, nil, &out)
	return out.Items, err
}

// SubmitInterconsulta hands a draft to the review queue.
func (s *Session) SubmitInterconsulta(ctx context.Context, id string) (Interconsulta, error) {
	var out Interconsulta
	err := s.do(ctx, http.MethodPost, "/v1/interconsultas/"+url.PathEscape(id)+"/submit", nil, &out)
	return out, err
}

// ClaimInterconsulta assigns the calling reviewer.
func (s *Session) ClaimInterconsulta(ctx context.Context, id string) (Interconsulta, error) {
	var out Interconsulta
	err := s.do(ctx, http.MethodPost, "/v1/interconsultas/"+url.PathEscape(id)+"/claim", nil, &out)
	return out, err
}

// RespondInterconsulta records the reviewer's answer.
func (s *Session) RespondInterconsulta(ctx context.Context, id, response string) (Interconsulta, error) {
	var out Interconsulta
	err := s.do(ctx, http.MethodPost, "/v1/interconsultas/"+url.PathEscape(id)+"/respond",
		RespondRequest{Response: response}, &out)
	return out, err
}

// CloseInterconsulta acknowledges the response. Terminal.
func (s *Session) CloseInterconsulta(ctx context.Context, id string) (Interconsulta, error) {
	var out Interconsulta
	err := s.do(ctx, http.MethodPost, "/v1/interconsultas/"+url.PathEscape(id)+"/close", nil, &out)
	return out, err
}

// RejectInterconsulta refuses a request with a mandatory note. Terminal.
func (s *Session) RejectInterconsulta(ctx context.Context, id, note string) (Interconsulta, error) {
	var out Interconsulta
	err := s.do(ctx, http.MethodPost, "/v1/interconsultas/"+url.PathEscape(id)+"/reject",
		RejectRequest{Note: note}, &out)
	return out, err
}

// CreatePrincipal registers an account. Administrator only.
func (s *Session) CreatePrincipal(ctx context.Context, req CreatePrincipalRequest) (Principal, error) {
	var out Principal
	err := s.do(ctx, http.MethodPost, "/v1/principals", req, &out)
	return out, err
}

// SetPrincipalRole reassigns a principal's role. Administrator only.
func (s *Session) SetPrincipalRole(ctx context.Context, principalID, role string) error {
	return s.do(ctx, http.MethodPut, "/v1/principals/"+url.PathEscape(principalID)+"/role",
		SetRoleRequest{Role: role}, nil)
}
