package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/hook-warden/internal/config"
	"github.com/sevigo/hook-warden/internal/core"
)

const testSecret = "webhook-secret"

// stubQueue records submissions and returns canned responses.
type stubQueue struct {
	submitted []*core.WebhookEvent
	submitErr error
	jobs      map[string]*core.JobSnapshot
	stats     core.QueueStats
}

func (q *stubQueue) Submit(_ context.Context, event *core.WebhookEvent) (string, error) {
	if q.submitErr != nil {
		return "", q.submitErr
	}
	q.submitted = append(q.submitted, event)
	return fmt.Sprintf("job-%d", len(q.submitted)), nil
}

func (q *stubQueue) Job(id string) (*core.JobSnapshot, error) {
	job, ok := q.jobs[id]
	if !ok {
		return nil, core.ErrJobNotFound
	}
	return job, nil
}

func (q *stubQueue) Stats() core.QueueStats { return q.stats }
func (q *stubQueue) Stop()                  {}

func testConfig(rateLimit int) *config.Config {
	return &config.Config{
		Webhook: config.WebhookConfig{Secret: testSecret, RateLimitPerMin: rateLimit},
	}
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func webhookRequest(t *testing.T, eventType string, body []byte, signature string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/github", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventType)
	req.Header.Set("X-GitHub-Delivery", "delivery-42")
	req.Header.Set("X-Hub-Signature-256", signature)
	return req
}

func pushBody(t *testing.T, files ...string) []byte {
	t.Helper()
	payload := map[string]any{
		"ref": "refs/heads/main",
		"repository": map[string]any{
			"name":           "demo",
			"full_name":      "sevigo/demo",
			"default_branch": "main",
			"owner":          map[string]any{"login": "sevigo"},
		},
		"commits": []map[string]any{
			{"message": "update", "added": files, "modified": []string{}, "removed": []string{}},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func newHandler(queue *stubQueue, rateLimit int) *WebhookHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWebhookHandler(testConfig(rateLimit), queue, logger)
}

func TestHandle_AcceptsSignedPush(t *testing.T) {
	queue := &stubQueue{}
	h := newHandler(queue, 120)

	body := pushBody(t, "main.go")
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(t, "push", body, sign(body)))

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)

	require.Len(t, queue.submitted, 1)
	event := queue.submitted[0]
	assert.Equal(t, "delivery-42", event.ID)
	assert.Equal(t, core.EventPush, event.Type)
	assert.Equal(t, "sevigo/demo", event.Repository.FullName)
	require.Len(t, event.Commits, 1)
	assert.Equal(t, []string{"main.go"}, event.Commits[0].Added)
}

func TestHandle_RejectsBadSignature(t *testing.T) {
	queue := &stubQueue{}
	h := newHandler(queue, 120)

	body := pushBody(t, "main.go")
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(t, "push", body, "sha256=deadbeef"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, queue.submitted)
}

func TestHandle_RejectsMalformedPayload(t *testing.T) {
	queue := &stubQueue{}
	h := newHandler(queue, 120)

	body := []byte(`{"not json`)
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(t, "push", body, sign(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, queue.submitted)
}

func TestHandle_RejectsUnsupportedEventType(t *testing.T) {
	queue := &stubQueue{}
	h := newHandler(queue, 120)

	body := []byte(`{"action":"started"}`)
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(t, "watch", body, sign(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, queue.submitted)
}

func TestHandle_IgnoresNonActionablePullRequest(t *testing.T) {
	queue := &stubQueue{}
	h := newHandler(queue, 120)

	payload := map[string]any{
		"action": "labeled",
		"repository": map[string]any{
			"name":      "demo",
			"full_name": "sevigo/demo",
			"owner":     map[string]any{"login": "sevigo"},
		},
		"pull_request": map[string]any{"number": 7},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(t, "pull_request", body, sign(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, queue.submitted)
}

func TestHandle_RejectsPushWithoutRepository(t *testing.T) {
	queue := &stubQueue{}
	h := newHandler(queue, 120)

	body := []byte(`{"ref":"refs/heads/main"}`)
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(t, "push", body, sign(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, queue.submitted)
}

func TestHandle_RateLimitsPerRepository(t *testing.T) {
	queue := &stubQueue{}
	// 12 per minute allows a burst of 1.
	h := newHandler(queue, 12)

	body := pushBody(t, "main.go")

	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(t, "push", body, sign(body)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	h.Handle(rec, webhookRequest(t, "push", body, sign(body)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, queue.submitted, 1)
}

func TestHandle_QueueClosedIsServiceUnavailable(t *testing.T) {
	queue := &stubQueue{submitErr: fmt.Errorf("queue is shutting down")}
	h := newHandler(queue, 120)

	body := pushBody(t, "main.go")
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(t, "push", body, sign(body)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
