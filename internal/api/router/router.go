// Package router wires HTTP routes onto a chi mux.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/http/handlers"
	httpmiddleware "github.com/cristian1110/nipponflex-saas-sub000/internal/http/middleware"
	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Webhook        *handlers.WebhookHandler
	Reminders      *handlers.RemindersHandler
	Health         *handlers.HealthHandler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.Health.Check)

	// The transport probes the webhook URL with GET before saving it.
	r.Post("/webhook", cfg.Webhook.Handle)
	r.Get("/webhook", cfg.Webhook.Liveness)

	if cfg.Reminders != nil {
		r.Post("/internal/reminders/run", cfg.Reminders.Run)
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
