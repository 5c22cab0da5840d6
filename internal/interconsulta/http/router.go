package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/portlink/interconsulta/internal/interconsulta/obs"
	"github.com/portlink/interconsulta/internal/interconsulta/service"
	"github.com/portlink/interconsulta/internal/interconsulta/store"
	"github.com/portlink/interconsulta/pkg/httpx"
	"github.com/portlink/interconsulta/pkg/jwtx"
	"github.com/portlink/interconsulta/pkg/slogx"

	_ "github.com/portlink/interconsulta/api/interconsulta" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store            store.Store
	TokenService     *service.TokenService
	LifecycleService *service.LifecycleService
	PrincipalService *service.PrincipalService
}

func NewRouter(
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerInterconsultas()
	r.registerPrincipals()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Interconsulta Service API
//	@version		0.1.0
//	@description	Authenticated request-lifecycle service for port-terminal interconsultas:
//	@description	stakeholders open formal queries, terminal staff claim and answer them, and
//	@description	every transition is recorded in an append-only history.
//	@description
//	@description				Access tokens are EdDSA-signed JWTs verifiable through the JWKS endpoint.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers a route with HTTP metrics keyed on the route pattern.
func (r *Router) handle(pattern string, h http.Handler) {
	r.Mux.Handle(pattern, obs.Instrument(pattern, h))
}

func (r *Router) registerAuth() {
	// POST /login - strict limit keyed on IP to slow brute force.
	r.handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /refresh - moderate limit; rotation means each token works once.
	r.handle("POST /v1/auth/refresh",
		httpx.Chain(&RefreshHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /revoke - moderate limit.
	r.handle("POST /v1/auth/revoke",
		httpx.Chain(&RevokeHandler{TokenService: r.TokenService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /jwks.json - public endpoint with high limit.
	r.handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerInterconsultas() {
	h := &InterconsultasHandler{Lifecycle: r.LifecycleService}

	authn := AuthnMiddleware(r.TokenService)

	reads := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			authn,
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		)
	}
	writes := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			authn,
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		)
	}

	r.handle("POST /v1/interconsultas", writes(http.HandlerFunc(h.HandleCreate)))
	r.handle("GET /v1/interconsultas", reads(http.HandlerFunc(h.HandleList)))
	r.handle("GET /v1/interconsultas/{id}", reads(http.HandlerFunc(h.HandleGet)))
	r.handle("POST /v1/interconsultas/{id}/submit", writes(http.HandlerFunc(h.HandleSubmit)))
	r.handle("POST /v1/interconsultas/{id}/claim", writes(http.HandlerFunc(h.HandleClaim)))
	r.handle("POST /v1/interconsultas/{id}/respond", writes(http.HandlerFunc(h.HandleRespond)))
	r.handle("POST /v1/interconsultas/{id}/close", writes(http.HandlerFunc(h.HandleClose)))
	r.handle("POST /v1/interconsultas/{id}/reject", writes(http.HandlerFunc(h.HandleReject)))
}

func (r *Router) registerPrincipals() {
	h := &PrincipalsHandler{Principals: r.PrincipalService}

	authn := AuthnMiddleware(r.TokenService)

	r.handle("POST /v1/principals",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			authn,
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
	r.handle("PUT /v1/principals/{id}/role",
		httpx.Chain(http.HandlerFunc(h.HandleSetRole),
			authn,
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", obs.Handler())
}
