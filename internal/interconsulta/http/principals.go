package http

import (
	"encoding/json"
	"net/http"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/service"
	"github.com/portlink/interconsulta/pkg/httpx"
	"github.com/portlink/interconsulta/pkg/icsdk"
)

// PrincipalsHandler serves the administrator account-management endpoints.
type PrincipalsHandler struct {
	Principals *service.PrincipalService
}

// HandleCreate godoc
//
//	@Summary		Create principal
//	@Description	Registers a new account with a role. Administrator only.
//	@Tags			Principals
//	@Accept			json
//	@Produce		json
//	@Param			request	body		icsdk.CreatePrincipalRequest	true	"New account"
//	@Success		201		{object}	icsdk.Principal
//	@Failure		400		{object}	icsdk.ErrorResponse
//	@Failure		403		{object}	icsdk.ErrorResponse
//	@Failure		409		{object}	icsdk.ErrorResponse	"username_taken"
//	@Security		BearerAuth
//	@Router			/v1/principals [post].
func (h *PrincipalsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromRequest(r)
	if !ok {
		icsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req icsdk.CreatePrincipalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		icsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		icsdk.NewValidationError("unknown role " + req.Role).WriteError(w)
		return
	}

	p, err := h.Principals.CreatePrincipal(r.Context(), id, req.Username, req.Secret, role)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toPrincipalDTO(p))
}

// HandleSetRole godoc
//
//	@Summary		Set principal role
//	@Description	Reassigns a principal's role and revokes their refresh tokens. Administrator only.
//	@Tags			Principals
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string				true	"Principal id"
//	@Param			request	body	icsdk.SetRoleRequest	true	"New role"
//	@Success		204		"Role reassigned"
//	@Failure		400		{object}	icsdk.ErrorResponse
//	@Failure		403		{object}	icsdk.ErrorResponse
//	@Failure		404		{object}	icsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/principals/{id}/role [put].
func (h *PrincipalsHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromRequest(r)
	if !ok {
		icsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req icsdk.SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		icsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		icsdk.NewValidationError("unknown role " + req.Role).WriteError(w)
		return
	}

	if err := h.Principals.SetRole(r.Context(), id, r.PathValue("id"), role); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
