package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/hook-warden/internal/core"
	"github.com/sevigo/hook-warden/internal/perf"
	"github.com/sevigo/hook-warden/internal/storage"
)

// QueryHandler serves the read-only query API: queue stats, job status,
// performance metrics, and the persisted decision audit trail. Every
// endpoint is side-effect free and safe to poll.
type QueryHandler struct {
	queue   core.QueueManager
	monitor *perf.Monitor
	store   storage.Store
	logger  *slog.Logger
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(queue core.QueueManager, monitor *perf.Monitor, store storage.Store, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{queue: queue, monitor: monitor, store: store, logger: logger}
}

// QueueStats returns the point-in-time queue occupancy snapshot.
func (h *QueryHandler) QueueStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.queue.Stats())
}

type jobResponse struct {
	ID          string                    `json:"id"`
	Repository  string                    `json:"repository"`
	EventType   core.EventType            `json:"eventType"`
	Priority    core.Priority             `json:"priority"`
	State       core.JobState             `json:"state"`
	Attempts    int                       `json:"attempts"`
	EnqueuedAt  time.Time                 `json:"enqueuedAt"`
	StartedAt   *time.Time                `json:"startedAt,omitempty"`
	CompletedAt *time.Time                `json:"completedAt,omitempty"`
	Decisions   []core.AutomationDecision `json:"decisions,omitempty"`
	Error       string                    `json:"error,omitempty"`
}

// Job returns the current snapshot for one job id.
func (h *QueryHandler) Job(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := h.queue.Job(id)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, core.ErrJobNotFound)
			return
		}
		h.logger.Error("failed to look up job", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("job lookup failed"))
		return
	}

	resp := jobResponse{
		ID:         snap.ID,
		Repository: snap.Event.Repository.FullName,
		EventType:  snap.Event.Type,
		Priority:   snap.Priority,
		State:      snap.State,
		Attempts:   snap.Attempts,
		EnqueuedAt: snap.EnqueuedAt,
		Decisions:  snap.Decisions,
		Error:      snap.Err,
	}
	if !snap.StartedAt.IsZero() {
		resp.StartedAt = &snap.StartedAt
	}
	if !snap.CompletedAt.IsZero() {
		resp.CompletedAt = &snap.CompletedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// Metrics returns the performance report for one metric id.
func (h *QueryHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.monitor.Metrics(id)
	if err != nil {
		writeError(w, http.StatusNotFound, core.ErrJobNotFound)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// MetricsSummary returns the aggregate over all retained metrics.
func (h *QueryHandler) MetricsSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Summarize())
}

// Decisions returns the persisted decision audit trail for one job id.
func (h *QueryHandler) Decisions(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	records, err := h.store.DecisionsForJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, core.ErrJobNotFound)
			return
		}
		h.logger.Error("failed to query decisions", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("decision lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// RecentJobs returns the most recently persisted terminal jobs.
func (h *QueryHandler) RecentJobs(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.RecentJobs(r.Context(), 20)
	if err != nil {
		h.logger.Error("failed to query recent jobs", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("recent jobs lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, records)
}
