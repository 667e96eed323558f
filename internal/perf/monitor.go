// Package perf implements the pipeline's performance monitor: a bounded,
// process-wide metric store with lazy, rule-based bottleneck detection.
package perf

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sevigo/hook-warden/internal/core"
)

// WebhookMetric is the root observation for one tracked unit of work.
type WebhookMetric struct {
	SubjectID  string         `json:"subjectId"`
	EventType  core.EventType `json:"eventType"`
	Repository string         `json:"repository"`
	Duration   time.Duration  `json:"durationMs"`
	QueueTime  time.Duration  `json:"queueTimeMs"`
	Success    bool           `json:"success"`
	Timestamp  time.Time      `json:"timestamp"`
}

// AnalysisMetric is one analysis pass recorded under a webhook metric.
type AnalysisMetric struct {
	Name       string        `json:"name"`
	Duration   time.Duration `json:"durationMs"`
	QueueTime  time.Duration `json:"queueTimeMs"`
	ErrorCount int           `json:"errorCount"`
	Success    bool          `json:"success"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Report is the read-side view for a single metric id, including the
// bottlenecks detected over its recorded data at read time.
type Report struct {
	ID          string           `json:"id"`
	Webhook     WebhookMetric    `json:"webhookProcessing"`
	Analyses    []AnalysisMetric `json:"analysisProcessing"`
	Bottlenecks []string         `json:"bottlenecks"`
}

// Summary aggregates all retained metrics on demand.
type Summary struct {
	TotalWebhooks int                    `json:"totalWebhooks"`
	Succeeded     int                    `json:"succeeded"`
	Failed        int                    `json:"failed"`
	ByEventType   map[core.EventType]int `json:"byEventType"`
	MinDuration   time.Duration          `json:"minDurationMs"`
	MaxDuration   time.Duration          `json:"maxDurationMs"`
	AvgDuration   time.Duration          `json:"avgDurationMs"`
	Bottlenecks   []string               `json:"bottlenecks"`
}

// Thresholds configure the bottleneck rules. Zero values fall back to
// defaults at construction.
type Thresholds struct {
	SlowProcessing time.Duration
	SlowQueueWait  time.Duration
}

const (
	defaultSlowProcessing = 5 * time.Second
	defaultSlowQueueWait  = 2 * time.Second

	// maxRetainedMetrics caps the store alongside the TTL so memory stays
	// bounded even under sustained burst.
	maxRetainedMetrics = 10000
)

// record is the mutable store entry. Analyses are appended under the
// record's own lock so unrelated metrics never serialize against each
// other.
type record struct {
	mu       sync.Mutex
	webhook  WebhookMetric
	analyses []AnalysisMetric
}

// Monitor records timing samples per tracked unit of work. It can be
// started and stopped independently of the rest of the pipeline; while
// stopped, recording calls are cheap no-ops.
type Monitor struct {
	metrics    *expirable.LRU[string, *record]
	thresholds Thresholds
	running    atomic.Bool
	logger     *slog.Logger
}

// NewMonitor creates a running Monitor retaining metrics for the given
// window.
func NewMonitor(retention time.Duration, thresholds Thresholds, logger *slog.Logger) *Monitor {
	if thresholds.SlowProcessing <= 0 {
		thresholds.SlowProcessing = defaultSlowProcessing
	}
	if thresholds.SlowQueueWait <= 0 {
		thresholds.SlowQueueWait = defaultSlowQueueWait
	}
	m := &Monitor{
		metrics:    expirable.NewLRU[string, *record](maxRetainedMetrics, nil, retention),
		thresholds: thresholds,
		logger:     logger,
	}
	m.running.Store(true)
	return m
}

// Start resumes metric collection.
func (m *Monitor) Start() {
	m.running.Store(true)
	m.logger.Info("performance monitor started")
}

// Stop pauses metric collection. Already-retained metrics stay readable.
func (m *Monitor) Stop() {
	m.running.Store(false)
	m.logger.Info("performance monitor stopped")
}

// RecordWebhookProcessing records the root observation for one unit of
// work and returns the metric id subsequent analysis samples attach to.
// Returns an empty id when the monitor is stopped.
func (m *Monitor) RecordWebhookProcessing(event *core.WebhookEvent, processingTime, queueTime time.Duration, success bool) string {
	if !m.running.Load() {
		return ""
	}

	id := uuid.NewString()
	subjectID := event.ID
	if subjectID == "" {
		subjectID = id
	}
	m.metrics.Add(id, &record{
		webhook: WebhookMetric{
			SubjectID:  subjectID,
			EventType:  event.Type,
			Repository: event.Repository.FullName,
			Duration:   processingTime,
			QueueTime:  queueTime,
			Success:    success,
			Timestamp:  time.Now().UTC(),
		},
	})
	return id
}

// RecordAnalysisProcessing appends an analysis sample to an existing
// metric. Unknown or expired ids are ignored with a debug log; the
// monitor never fails a caller over its own bookkeeping.
func (m *Monitor) RecordAnalysisProcessing(metricID, analysisName string, duration, queueTime time.Duration, errorCount int, success bool) {
	if !m.running.Load() || metricID == "" {
		return
	}
	rec, ok := m.metrics.Get(metricID)
	if !ok {
		m.logger.Debug("dropping analysis sample for unknown metric", "metric_id", metricID, "analysis", analysisName)
		return
	}
	rec.mu.Lock()
	rec.analyses = append(rec.analyses, AnalysisMetric{
		Name:       analysisName,
		Duration:   duration,
		QueueTime:  queueTime,
		ErrorCount: errorCount,
		Success:    success,
		Timestamp:  time.Now().UTC(),
	})
	rec.mu.Unlock()
}

// Metrics returns the report for a metric id, with bottleneck detection
// run over the recorded data at read time.
func (m *Monitor) Metrics(id string) (*Report, error) {
	rec, ok := m.metrics.Get(id)
	if !ok {
		return nil, fmt.Errorf("metric %q: %w", id, core.ErrJobNotFound)
	}

	rec.mu.Lock()
	analyses := make([]AnalysisMetric, len(rec.analyses))
	copy(analyses, rec.analyses)
	webhook := rec.webhook
	rec.mu.Unlock()

	return &Report{
		ID:          id,
		Webhook:     webhook,
		Analyses:    analyses,
		Bottlenecks: m.detectBottlenecks(webhook, analyses),
	}, nil
}

// Summarize aggregates every retained metric. Detection here flags
// aggregate conditions, not per-id ones.
func (m *Monitor) Summarize() Summary {
	summary := Summary{ByEventType: make(map[core.EventType]int)}

	var total time.Duration
	for _, id := range m.metrics.Keys() {
		rec, ok := m.metrics.Get(id)
		if !ok {
			continue
		}
		rec.mu.Lock()
		w := rec.webhook
		rec.mu.Unlock()

		summary.TotalWebhooks++
		summary.ByEventType[w.EventType]++
		if w.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		total += w.Duration
		if summary.MinDuration == 0 || w.Duration < summary.MinDuration {
			summary.MinDuration = w.Duration
		}
		if w.Duration > summary.MaxDuration {
			summary.MaxDuration = w.Duration
		}
	}
	if summary.TotalWebhooks > 0 {
		summary.AvgDuration = total / time.Duration(summary.TotalWebhooks)
	}
	if summary.AvgDuration > m.thresholds.SlowProcessing {
		summary.Bottlenecks = append(summary.Bottlenecks, "Webhook processing is slow on average")
	}
	if summary.TotalWebhooks > 0 && summary.Failed*2 > summary.TotalWebhooks {
		summary.Bottlenecks = append(summary.Bottlenecks, "More than half of recent webhooks failed")
	}
	return summary
}

// detectBottlenecks runs the rule-based scan over one metric. Detection
// is deterministic for the same recorded data.
func (m *Monitor) detectBottlenecks(webhook WebhookMetric, analyses []AnalysisMetric) []string {
	var flags []string
	if webhook.Duration > m.thresholds.SlowProcessing {
		flags = append(flags, fmt.Sprintf("Webhook processing is slow: %v exceeds %v", webhook.Duration, m.thresholds.SlowProcessing))
	}
	if webhook.QueueTime > m.thresholds.SlowQueueWait {
		flags = append(flags, fmt.Sprintf("Queue wait is slow: %v exceeds %v", webhook.QueueTime, m.thresholds.SlowQueueWait))
	}
	for _, a := range analyses {
		if a.Duration > m.thresholds.SlowProcessing {
			flags = append(flags, fmt.Sprintf("Analysis %q is slow: %v exceeds %v", a.Name, a.Duration, m.thresholds.SlowProcessing))
		}
		if a.ErrorCount > 0 {
			flags = append(flags, fmt.Sprintf("Analysis %q reported %d errors", a.Name, a.ErrorCount))
		}
	}
	return flags
}
