package api

import (
	"net/http"

	"github.com/dom/athlete-log/internal/api/handlers"
	"github.com/dom/athlete-log/internal/api/middleware"
	"github.com/dom/athlete-log/internal/config"
	"github.com/dom/athlete-log/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(services *service.Services, cfg *config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, logger)
	oauthHandler := handlers.NewOAuthHandler(services.Identity, !cfg.IsDevelopment(), logger)
	activityHandler := handlers.NewActivityHandler(services.Activity, logger)
	stravaHandler := handlers.NewStravaHandler(services.Credential, services.Import, cfg, logger)
	statsHandler := handlers.NewStatsHandler(services.Stats, logger)
	requireAuth := middleware.Auth(services.Auth, logger)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/{provider}/login", oauthHandler.Login)
			r.Get("/{provider}/callback", oauthHandler.Callback)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Strava redirects here without a bearer token
		r.Get("/strava/callback", stravaHandler.Callback)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/activities", func(r chi.Router) {
				r.Get("/", activityHandler.List)
				r.Post("/", activityHandler.Create)
				r.Get("/{id}", activityHandler.Get)
				r.Put("/{id}", activityHandler.Update)
				r.Delete("/{id}", activityHandler.Delete)
			})

			r.Get("/stats/monthly", statsHandler.Monthly)

			r.Route("/strava", func(r chi.Router) {
				r.Get("/status", stravaHandler.Status)
				r.Get("/connect", stravaHandler.Connect)
				r.Post("/import", stravaHandler.Import)
				r.Delete("/connection", stravaHandler.Disconnect)
			})
		})
	})

	return r
}
