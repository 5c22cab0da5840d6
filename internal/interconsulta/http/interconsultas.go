package http

import (
	"encoding/json"
	"net/http"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/service"
	"github.com/portlink/interconsulta/pkg/httpx"
	"github.com/portlink/interconsulta/pkg/icsdk"
)

// InterconsultasHandler serves the request lifecycle endpoints.
type InterconsultasHandler struct {
	Lifecycle *service.LifecycleService
}

// HandleCreate godoc
//
//	@Summary		Create interconsulta
//	@Description	Opens a new draft request owned by the caller.
//	@Tags			Interconsultas
//	@Accept			json
//	@Produce		json
//	@Param			request	body		icsdk.CreateInterconsultaRequest	true	"New request"
//	@Success		201		{object}	icsdk.Interconsulta
//	@Failure		400		{object}	icsdk.ErrorResponse
//	@Failure		403		{object}	icsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/interconsultas [post].
func (h *InterconsultasHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromRequest(r)
	if !ok {
		icsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req icsdk.CreateInterconsultaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		icsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	e, err := h.Lifecycle.Create(r.Context(), id, service.CreateInput{
		Subject:  req.Subject,
		Category: req.Category,
		Payload:  req.Payload,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toInterconsultaDTO(e))
}

// HandleGet godoc
//
//	@Summary		Get interconsulta
//	@Description	Returns one request with its full transition history.
//	@Tags			Interconsultas
//	@Produce		json
//	@Param			id	path		string	true	"Request id"
//	@Success		200	{object}	icsdk.Interconsulta
//	@Failure		403	{object}	icsdk.ErrorResponse
//	@Failure		404	{object}	icsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/interconsultas/{id} [get].
func (h *InterconsultasHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromRequest(r)
	if !ok {
		icsdk.ErrInvalidToken.WriteError(w)
		return
	}

	e, err := h.Lifecycle.Get(r.Context(), id, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInterconsultaDTO(e))
}

// HandleList godoc
//
//	@Summary		List interconsultas
//	@Description	Lists the requests visible to the caller, newest first.
//	@Description	Requesters see their own, reviewers their assignments plus the submitted queue, administrators everything.
//	@Tags			Interconsultas
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"
//	@Success		200		{object}	icsdk.InterconsultaListResponse
//	@Failure		400		{object}	icsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/interconsultas [get].
func (h *InterconsultasHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromRequest(r)
	if !ok {
		icsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var status *domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := domain.ParseStatus(raw)
		if err != nil {
			icsdk.NewValidationError("unknown status " + raw).WriteError(w)
			return
		}
		status = &parsed
	}

	items, err := h.Lifecycle.List(r.Context(), id, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInterconsultaListDTO(items))
}

// HandleSubmit godoc
//
//	@Summary		Submit interconsulta
//	@Description	Hands a draft to the review queue.
//	@Tags			Interconsultas
//	@Produce		json
//	@Param			id	path		string	true	"Request id"
//	@Success		200	{object}	icsdk.Interconsulta
//	@Failure		409	{object}	icsdk.ErrorResponse	"invalid_transition or concurrent_modification"
//	@Security		BearerAuth
//	@Router			/v1/interconsultas/{id}/submit [post].
func (h *InterconsultasHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, func(id domain.Identity) (domain.Interconsulta, error) {
		return h.Lifecycle.Submit(r.Context(), id, r.PathValue("id"))
	})
}

// HandleClaim godoc
//
//	@Summary		Claim interconsulta
//	@Description	Assigns the calling reviewer and starts the review.
//	@Tags			Interconsultas
//	@Produce		json
//	@Param			id	path		string	true	"Request id"
//	@Success		200	{object}	icsdk.Interconsulta
//	@Failure		409	{object}	icsdk.ErrorResponse	"invalid_transition or concurrent_modification"
//	@Security		BearerAuth
//	@Router			/v1/interconsultas/{id}/claim [post].
func (h *InterconsultasHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, func(id domain.Identity) (domain.Interconsulta, error) {
		return h.Lifecycle.Claim(r.Context(), id, r.PathValue("id"))
	})
}

// HandleRespond godoc
//
//	@Summary		Respond to interconsulta
//	@Description	Records the reviewer's answer.
//	@Tags			Interconsultas
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Request id"
//	@Param			request	body		icsdk.RespondRequest	true	"Answer"
//	@Success		200		{object}	icsdk.Interconsulta
//	@Failure		409		{object}	icsdk.ErrorResponse	"invalid_transition or concurrent_modification"
//	@Security		BearerAuth
//	@Router			/v1/interconsultas/{id}/respond [post].
func (h *InterconsultasHandler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	var req icsdk.RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		icsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	h.applyTransition(w, r, func(id domain.Identity) (domain.Interconsulta, error) {
		return h.Lifecycle.Respond(r.Context(), id, r.PathValue("id"), req.Response)
	})
}

// HandleClose godoc
//
//	@Summary		Close interconsulta
//	@Description	Acknowledges the response. Terminal.
//	@Tags			Interconsultas
//	@Produce		json
//	@Param			id	path		string	true	"Request id"
//	@Success		200	{object}	icsdk.Interconsulta
//	@Failure		409	{object}	icsdk.ErrorResponse	"invalid_transition or concurrent_modification"
//	@Security		BearerAuth
//	@Router			/v1/interconsultas/{id}/close [post].
func (h *InterconsultasHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	h.applyTransition(w, r, func(id domain.Identity) (domain.Interconsulta, error) {
		return h.Lifecycle.Close(r.Context(), id, r.PathValue("id"))
	})
}

// HandleReject godoc
//
//	@Summary		Reject interconsulta
//	@Description	Refuses a request with a mandatory note. Terminal.
//	@Tags			Interconsultas
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Request id"
//	@Param			request	body		icsdk.RejectRequest	true	"Rejection note"
//	@Success		200		{object}	icsdk.Interconsulta
//	@Failure		409		{object}	icsdk.ErrorResponse	"invalid_transition or concurrent_modification"
//	@Security		BearerAuth
//	@Router			/v1/interconsultas/{id}/reject [post].
func (h *InterconsultasHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req icsdk.RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		icsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	h.applyTransition(w, r, func(id domain.Identity) (domain.Interconsulta, error) {
		return h.Lifecycle.Reject(r.Context(), id, r.PathValue("id"), req.Note)
	})
}

func (h *InterconsultasHandler) applyTransition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(id domain.Identity) (domain.Interconsulta, error),
) {
	id, ok := identityFromRequest(r)
	if !ok {
		icsdk.ErrInvalidToken.WriteError(w)
		return
	}

	e, err := apply(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toInterconsultaDTO(e))
}
