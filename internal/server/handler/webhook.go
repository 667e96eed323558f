// Package handler provides the HTTP handlers for the hook pipeline.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v68/github"

	"github.com/sevigo/hook-warden/internal/config"
	"github.com/sevigo/hook-warden/internal/core"
)

// WebhookHandler is the ingestion boundary: it authenticates and shapes
// incoming webhooks and submits the resulting events to the queue. It
// never blocks on queue state; validation is synchronous and the queue
// submission returns immediately.
type WebhookHandler struct {
	cfg     *config.Config
	queue   core.QueueManager
	limiter *sourceLimiter
	logger  *slog.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(cfg *config.Config, queue core.QueueManager, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:     cfg,
		queue:   queue,
		limiter: newSourceLimiter(cfg.Webhook.RateLimitPerMin),
		logger:  logger,
	}
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handle processes a webhook delivery. Signature verification runs
// before anything else touches the payload; go-github's ValidatePayload
// does the constant-time HMAC comparison against the configured secret.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, []byte(h.cfg.Webhook.Secret))
	if err != nil {
		h.logger.Error("invalid webhook payload signature", "error", err)
		writeError(w, http.StatusUnauthorized, core.ErrUnauthorized)
		return
	}

	rawEvent, err := github.ParseWebHook(github.WebHookType(r), payload)
	if err != nil {
		h.logger.Error("could not parse webhook payload", "error", err)
		writeError(w, http.StatusBadRequest, core.ErrInvalidPayload)
		return
	}

	event, err := h.normalize(rawEvent)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnsupportedEventType):
			h.logger.Debug("rejecting unsupported webhook event type", "type", github.WebHookType(r))
			writeError(w, http.StatusUnprocessableEntity, core.ErrUnsupportedEventType)
		case errors.Is(err, core.ErrEventIgnored):
			h.logger.Debug("ignoring webhook event", "reason", err.Error())
			writeJSON(w, http.StatusOK, errorResponse{Error: core.ErrEventIgnored.Error()})
		default:
			h.logger.Debug("rejecting malformed webhook payload", "reason", err.Error())
			writeError(w, http.StatusBadRequest, core.ErrInvalidPayload)
		}
		return
	}
	event.ID = github.DeliveryID(r)

	if !h.limiter.allow(event.Repository.FullName) {
		h.logger.Warn("rate limit exceeded for repository", "repo", event.Repository.FullName)
		writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
		return
	}

	jobID, err := h.queue.Submit(r.Context(), event)
	if err != nil {
		h.logger.Error("failed to submit webhook job", "error", err, "repo", event.Repository.FullName)
		writeError(w, http.StatusServiceUnavailable, errors.New("queue is not accepting jobs"))
		return
	}

	h.logger.Info("webhook accepted",
		"job_id", jobID,
		"repo", event.Repository.FullName,
		"type", event.Type,
		"priority", event.Priority,
	)
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID})
}

// normalize maps provider payload types onto the internal event model.
func (h *WebhookHandler) normalize(rawEvent any) (*core.WebhookEvent, error) {
	switch e := rawEvent.(type) {
	case *github.PushEvent:
		return core.EventFromPush(e)
	case *github.PullRequestEvent:
		return core.EventFromPullRequest(e)
	case *github.ReleaseEvent:
		return core.EventFromRelease(e)
	default:
		return nil, core.ErrUnsupportedEventType
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
