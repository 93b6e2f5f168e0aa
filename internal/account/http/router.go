package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/caveo-app/caveo-api/internal/account/domain"
	"github.com/caveo-app/caveo-api/internal/account/metrics"
	"github.com/caveo-app/caveo-api/internal/account/service"
	"github.com/caveo-app/caveo-api/internal/account/store"
	"github.com/caveo-app/caveo-api/pkg/httpx"
	"github.com/caveo-app/caveo-api/pkg/jwtx"
	"github.com/caveo-app/caveo-api/pkg/slogx"

	_ "github.com/caveo-app/caveo-api/api/docs" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	limits       httpx.RateLimits
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics

	store          store.Store
	AuthService    *service.AuthService
	AccountService *service.AccountService
}

type RouterConfig struct {
	Verifier     jwtx.Verifier
	Store        store.Store
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	RateLimits   httpx.RateLimits
	CORS         httpx.CORSConfig
	BuildVersion string
}

func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     cfg.Verifier,
		limits:       cfg.RateLimits.Sanitize(),
		buildVersion: cfg.BuildVersion,
		startTime:    time.Now(),
		logger:       logger,
		metrics:      cfg.Metrics,
		store:        cfg.Store,
	}

	// Outermost first. Recover sits inside the request logger so a recovered
	// panic is still logged as a 500 with its request id.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover(),
		httpx.SecurityHeaders(),
		httpx.CORS(cfg.CORS),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAccount()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Caveo Account API
//	@version					1.0.0
//	@description				Sign in or register against the Cognito user pool and manage the local profile mirror.
//	@description
//	@description				Bearer tokens are Cognito ID or access tokens (RS256), verified against the pool JWKS.
//
//	@BasePath					/
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Cognito token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h under pattern with per-route instrumentation.
func (r *Router) handle(pattern string, h http.Handler, mws ...httpx.Middleware) {
	mws = append([]httpx.Middleware{r.metrics.Instrument(pattern)}, mws...)
	r.Mux.Handle(pattern, httpx.Chain(h, mws...))
}

func (r *Router) registerAuth() {
	// POST /auth - strict rate limit by IP (credential guessing)
	r.handle("POST /auth", &AuthHandler{AuthService: r.AuthService},
		httpx.RateLimitByIP(r.limits.Strict),
	)
}

func (r *Router) registerAccount() {
	// GET /account/me - ID token carries email and name
	r.handle("GET /account/me", MeHandler(),
		httpx.AuthnMiddleware(r.verifier, jwtx.TokenUseID),
		httpx.RateLimitByUser(r.limits.Lenient),
	)

	// PUT /account/edit - access token, it is what the provider accepts for
	// self-service attribute updates
	r.handle("PUT /account/edit", &EditProfileHandler{AccountService: r.AccountService},
		httpx.AuthnMiddleware(r.verifier, jwtx.TokenUseAccess),
		httpx.RateLimitByUser(r.limits.Moderate),
	)
}

func (r *Router) registerUsers() {
	r.handle("GET /users", &UsersHandler{AccountService: r.AccountService},
		httpx.AuthnMiddleware(r.verifier, ""),
		httpx.RequireAnyGroup(string(domain.RoleAdmin)),
		httpx.RateLimitByUser(r.limits.Moderate),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.handle("GET /health", HealthHandler(r.startTime, r.buildVersion),
		httpx.RateLimitByIP(r.limits.Lenient),
	)
	r.handle("GET /ready", ReadyHandler(r.startTime, r.buildVersion, r.store),
		httpx.RateLimitByIP(r.limits.Lenient),
	)

	r.Mux.Handle("GET /metrics", r.metrics.Handler())
	r.Mux.Handle("GET /docs/", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
}
