package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-multi-auth/internal/config"
	"go-multi-auth/internal/handler"
	"go-multi-auth/internal/metrics"
	"go-multi-auth/internal/middleware"
	"go-multi-auth/internal/model"
)

func New(
	cfg *config.Config,
	m *metrics.Metrics,
	authMiddleware *middleware.AuthMiddleware,
	authHandlers []*handler.AuthHandler,
	oauthHandler *handler.OAuthHandler,
	healthHandler *handler.HealthHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, cfg.TrustProxyHeaders)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(m.Instrument)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Post("/oauth/token", oauthHandler.Token)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		for _, h := range authHandlers {
			mountGroup(api, authMiddleware, h)
		}
	})

	return r
}

// mountGroup serves one principal type under /api/{group}. Protected routes
// only accept tokens minted for that type's provider.
func mountGroup(api chi.Router, authMiddleware *middleware.AuthMiddleware, h *handler.AuthHandler) {
	t := h.Type()

	api.Route("/"+t.RouteGroup(), func(group chi.Router) {
		group.Post("/register", h.Register)
		group.Post("/login", h.Login)
		group.Post("/refresh-token", h.Refresh)
		if t == model.PrincipalUser {
			group.Post("/refreshToken", h.Refresh)
		}

		group.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireProvider(t.Provider()))
			protected.Get("/logout", h.Logout)
			protected.Get("/"+t.ProfilePath(), h.Profile)
		})
	})
}
