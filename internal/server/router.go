package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/hook-warden/internal/config"
	"github.com/sevigo/hook-warden/internal/core"
	"github.com/sevigo/hook-warden/internal/perf"
	"github.com/sevigo/hook-warden/internal/server/handler"
	"github.com/sevigo/hook-warden/internal/storage"
)

// NewRouter creates and configures the HTTP router with middleware,
// the ingestion endpoint, and the read-only query API.
func NewRouter(cfg *config.Config, queue core.QueueManager, monitor *perf.Monitor, store storage.Store, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		webhookHandler := handler.NewWebhookHandler(cfg, queue, logger)
		r.Post("/webhook/github", webhookHandler.Handle)

		queryHandler := handler.NewQueryHandler(queue, monitor, store, logger)
		r.Get("/queue/stats", queryHandler.QueueStats)
		r.Get("/jobs/{id}", queryHandler.Job)
		r.Get("/jobs", queryHandler.RecentJobs)
		r.Get("/metrics", queryHandler.MetricsSummary)
		r.Get("/metrics/{id}", queryHandler.Metrics)
		r.Get("/decisions/{jobID}", queryHandler.Decisions)
	})

	return r
}
