package http

import (
	"errors"
	"net/http"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/service"
	"github.com/portlink/interconsulta/pkg/icsdk"
	"github.com/portlink/interconsulta/pkg/slogx"
)

// writeServiceError maps service-layer errors onto the wire envelope. Unknown
// errors are logged and reported as an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		icsdk.NewValidationError(ve.Error()).WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		icsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrInvalidRefresh):
		icsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrTokenExpired):
		icsdk.ErrTokenExpired.WriteError(w)
	case errors.Is(err, service.ErrTokenInvalid):
		icsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrForbidden):
		icsdk.ErrForbidden.WriteError(w)
	case errors.Is(err, service.ErrNotFound):
		icsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, domain.ErrInvalidTransition):
		icsdk.ErrInvalidTransition.WriteError(w)
	case errors.Is(err, service.ErrConcurrentModification):
		icsdk.ErrConcurrentModification.WriteError(w)
	case errors.Is(err, service.ErrUsernameTaken):
		icsdk.ErrUsernameTaken.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		icsdk.ErrServerError.WriteError(w)
	}
}
