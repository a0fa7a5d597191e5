// Package http exposes the forecasting service over a chi router: run
// triggering, forecast retrieval, health, and Prometheus metrics.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salesfc/internal/config"
)

// NewRouter assembles the service router with the standard middleware stack
// and mounts every handler under /api/v1.
func NewRouter(cfg config.ServerConfig, runs *RunsHandler, forecast *ForecastHandler, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(render.SetContentType(render.ContentTypeJSON))
		api.Mount("/runs", runs.Routes())
		api.Mount("/forecast", forecast.Routes())
		api.Get("/versions", forecast.ListVersions)
	})

	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// healthz reports process liveness.
func healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
