package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/linkrelay/linkrelay/internal/handler"
	"github.com/linkrelay/linkrelay/internal/middleware"
)

// RouterDeps are the handlers and policies the router mounts.
type RouterDeps struct {
	Logger        *slog.Logger
	IsDevelopment bool

	Verifier    middleware.TokenVerifier
	RateLimiter middleware.RateLimitConfig

	Health   *handler.HealthHandler
	Verify   *handler.VerifyHandler
	Stats    *handler.StatsHandler
	Domains  *handler.DomainHandler
	Metrics  *handler.MetricsHandler
	Redirect *handler.RedirectHandler
}

// NewRouter builds the HTTP surface: probes, the token-guarded /api
// tree, and the redirect catch-all.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: d.IsDevelopment}))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(middleware.DefaultMaxBodySize))

		r.Get("/verify", d.Verify.Verify)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SiteToken(middleware.AuthConfig{Logger: d.Logger, Verifier: d.Verifier}))

			r.Get("/link/stats", d.Stats.LinkStats)
			r.Get("/config/domains", d.Domains.List)
			r.Post("/config/domains", d.Domains.Create)
			r.Post("/config/domains/delete", d.Domains.Delete)
			r.Get("/config/domains/stats", d.Stats.DomainStats)
			r.Get("/metrics", d.Metrics.Metrics)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitIP(d.RateLimiter))
		r.Get("/*", d.Redirect.Redirect)
		r.Head("/*", d.Redirect.Redirect)
	})

	return r
}
