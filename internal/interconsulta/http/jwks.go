package http

import (
	"net/http"

	"github.com/portlink/interconsulta/pkg/httpx"
	"github.com/portlink/interconsulta/pkg/icsdk"
	"github.com/portlink/interconsulta/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	icsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, icsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
