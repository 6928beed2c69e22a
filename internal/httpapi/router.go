package httpapi

import (
	"net/http"

	"github.com/MrEthical07/storeAuth/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// AdminRole gates the /api/v1/admin routes.
const AdminRole = "admin"

// Dependencies are the collaborators the router mounts.
type Dependencies struct {
	Auth AuthService
	// Metrics serves GET /metrics when non-nil.
	Metrics http.Handler
	Logger  *zap.Logger
	Options Options
}

// NewRouter builds the HTTP surface.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opts := deps.Options

	h := &authHandler{
		auth:         deps.Auth,
		log:          log,
		secureCookie: opts.SecureCookie,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(httpsRedirect(opts.HTTPSRedirect, opts.TrustProxy))
	r.Use(middleware.SecurityHeaders(opts.Production))
	r.Use(newCORS(opts.CORSAllowedOrigins).Handler)
	r.Use(middleware.ClientID(opts.TrustProxy))
	if opts.Timeout > 0 {
		r.Use(chimiddleware.Timeout(opts.Timeout))
	}
	r.Use(bodyLimit(opts.BodyLimit))

	r.Get("/healthz", h.health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	rateGate := middleware.RateLimit(deps.Auth)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(rateGate).Post("/register", h.register)
		r.With(rateGate, middleware.Lockout(deps.Auth)).Post("/login", h.login)
		r.With(rateGate).Post("/refresh", h.refresh)
		r.With(rateGate).Post("/logout", h.logout)
		r.With(middleware.Guard(deps.Auth)).Get("/me", h.me)
		r.With(rateGate, middleware.Guard(deps.Auth)).Post("/logout-all", h.logoutAll)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Guard(deps.Auth), middleware.RequireRole(AdminRole))
		r.Get("/users/{id}/sessions", h.adminSessions)
		r.Post("/users/{id}/logout-all", h.adminLogoutAll)
	})

	return r
}

func newCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
