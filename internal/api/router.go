package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sky93/queuectl/internal/telemetry"
)

// maxBodyBytes bounds request bodies; commands are short strings.
const maxBodyBytes = 1 << 20

// NewRouter wires the handlers, /metrics and /healthz.
func NewRouter(q Queue, logger *slog.Logger) http.Handler {
	h := NewHandler(q, logger)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(h.logger))
	r.Use(MaxBodySize(maxBodyBytes))

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", telemetry.Handler())

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.Enqueue)
		r.Get("/", h.ListJobs)
		r.Get("/{id}", h.GetJob)
	})
	r.Route("/dlq", func(r chi.Router) {
		r.Get("/", h.ListDLQ)
		r.Post("/{id}/retry", h.RetryDLQ)
	})
	r.Get("/status", h.Status)
	r.Get("/config", h.GetConfig)
	r.Put("/config/{key}", h.SetConfig)
	r.Post("/workers/stop", h.StopWorkers)

	return r
}

// NewServer returns an http.Server for addr with the router mounted.
func NewServer(addr string, q Queue, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      NewRouter(q, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
