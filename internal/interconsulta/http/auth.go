package http

import (
	"encoding/json"
	"net/http"

	"github.com/portlink/interconsulta/internal/interconsulta/service"
	"github.com/portlink/interconsulta/pkg/httpx"
	"github.com/portlink/interconsulta/pkg/icsdk"
	"github.com/portlink/interconsulta/pkg/slogx"
)

// LoginHandler serves POST /v1/auth/login.
type LoginHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Login
//	@Description	Authenticates a username/secret pair and returns an access/refresh token pair.
//	@Description	Unknown usernames and wrong secrets produce the same response.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		icsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	icsdk.TokenResponse
//	@Failure		400		{object}	icsdk.ErrorResponse
//	@Failure		401		{object}	icsdk.ErrorResponse
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req icsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		icsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.Login(r.Context(), req.Username, req.Secret)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, icsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// RefreshHandler serves POST /v1/auth/refresh.
type RefreshHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Refresh
//	@Description	Rotates a refresh token: the old token is revoked and a new pair issued.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		icsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	icsdk.TokenResponse
//	@Failure		400		{object}	icsdk.ErrorResponse
//	@Failure		401		{object}	icsdk.ErrorResponse
//	@Router			/v1/auth/refresh [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req icsdk.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		icsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, icsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// RevokeHandler serves POST /v1/auth/revoke. Unknown tokens still return
// 200 OK so the endpoint cannot be used to probe for live tokens.
type RevokeHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Revoke
//	@Description	Revokes a refresh token and optionally denylists the matching access token.
//	@Description	Returns 200 OK even for unknown tokens to prevent token scanning.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body	icsdk.RevokeRequest	true	"Tokens to revoke"
//	@Success		200		"Revoked (or was already invalid)"
//	@Failure		400		{object}	icsdk.ErrorResponse
//	@Router			/v1/auth/revoke [post].
func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req icsdk.RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		icsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.TokenService.Revoke(r.Context(), req.RefreshToken, req.AccessToken); err != nil {
		slogx.FromContext(r.Context()).Warn("revoke failed", "err", err)
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("{}"))
}
