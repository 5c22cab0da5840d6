package http

import (
	"net/http"
	"strings"

	"github.com/portlink/interconsulta/internal/interconsulta/service"
	"github.com/portlink/interconsulta/pkg/httpx"
	"github.com/portlink/interconsulta/pkg/icsdk"
)

// AuthnMiddleware authenticates the bearer token and attaches the verified
// identity to the request context. Verification goes through TokenService so
// the revocation denylist is consulted, not just the signature.
func AuthnMiddleware(tokens *service.TokenService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				icsdk.ErrInvalidToken.WriteError(w)
				return
			}

			id, err := tokens.Verify(r.Context(), raw)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}

			ctx := httpx.WithPrincipal(r.Context(), id.PrincipalID, id.Role.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
