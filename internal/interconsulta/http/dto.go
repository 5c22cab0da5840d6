package http

import (
	"net/http"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/pkg/httpx"
	"github.com/portlink/interconsulta/pkg/icsdk"
)

// identityFromRequest rebuilds the verified identity the authn middleware
// stored on the context.
func identityFromRequest(r *http.Request) (domain.Identity, bool) {
	principalID := httpx.PrincipalIDFromCtx(r.Context())
	role, err := domain.ParseRole(httpx.RoleFromCtx(r.Context()))
	if principalID == "" || err != nil {
		return domain.Identity{}, false
	}
	return domain.Identity{PrincipalID: principalID, Role: role}, true
}

func toInterconsultaDTO(e domain.Interconsulta) icsdk.Interconsulta {
	out := icsdk.Interconsulta{
		ID:          e.ID,
		RequesterID: e.RequesterID,
		ReviewerID:  e.ReviewerID,
		Subject:     e.Subject,
		Category:    e.Category,
		Payload:     e.Payload,
		Response:    e.Response,
		Status:      e.Status.String(),
		Version:     e.Version,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	for _, t := range e.History {
		out.History = append(out.History, icsdk.TransitionEntry{
			From:      t.From.String(),
			To:        t.To.String(),
			ActorID:   t.ActorID,
			Note:      t.Note,
			CreatedAt: t.CreatedAt,
		})
	}
	return out
}

func toInterconsultaListDTO(items []domain.Interconsulta) icsdk.InterconsultaListResponse {
	out := icsdk.InterconsultaListResponse{Items: make([]icsdk.Interconsulta, 0, len(items))}
	for _, e := range items {
		out.Items = append(out.Items, toInterconsultaDTO(e))
	}
	return out
}

func toPrincipalDTO(p domain.Principal) icsdk.Principal {
	return icsdk.Principal{
		ID:        p.ID,
		Username:  p.Username,
		Role:      p.Role.String(),
		CreatedAt: p.CreatedAt,
	}
}
