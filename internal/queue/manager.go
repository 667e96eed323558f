// Package queue implements the priority job queue that drives webhook
// events through the processing pipeline: a heap-backed priority
// structure, a bounded worker pool, retry accounting, and terminal-job
// retention.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/hook-warden/internal/core"
	"github.com/sevigo/hook-warden/internal/perf"
	"github.com/sevigo/hook-warden/internal/storage"
)

// Options tune the queue manager. Zero values fall back to defaults in
// NewManager.
type Options struct {
	// MaxWorkers bounds how many jobs may be Processing at once
	// (admission control).
	MaxWorkers int
	// MaxAttempts is the total number of attempts a job gets before it
	// fails on a recoverable error.
	MaxAttempts int
	// JobTimeout bounds each processing attempt. A timed-out attempt
	// counts as a recoverable failure and frees the worker slot; the
	// abandoned evaluation is left to finish on its own.
	JobTimeout time.Duration
	// RetryToFront re-enters retried jobs at the front of their priority
	// band instead of the default back placement.
	RetryToFront bool
	// Retention is how long terminal jobs stay queryable before the
	// janitor evicts them.
	Retention time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = 1
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 30 * time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 15 * time.Minute
	}
	return o
}

// Manager owns every job record exclusively. The processor and evaluator
// receive value copies of event data and return results by value; they
// never hold references into the queue's storage.
type Manager struct {
	opts      Options
	processor core.Processor
	evaluator core.Evaluator
	monitor   *perf.Monitor
	store     storage.Store
	logger    *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending jobHeap
	jobs    map[string]*job
	stats   core.QueueStats
	seq     uint64
	closed  bool

	wg        sync.WaitGroup
	janitorCh chan struct{}
}

// NewManager creates a Manager and starts its worker pool and janitor.
func NewManager(opts Options, processor core.Processor, evaluator core.Evaluator, monitor *perf.Monitor, store storage.Store, logger *slog.Logger) *Manager {
	opts = opts.withDefaults()
	m := &Manager{
		opts:      opts,
		processor: processor,
		evaluator: evaluator,
		monitor:   monitor,
		store:     store,
		logger:    logger,
		jobs:      make(map[string]*job),
		janitorCh: make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)

	for i := 0; i < opts.MaxWorkers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	m.wg.Add(1)
	go m.janitor()

	return m
}

// Submit validates the event, creates a pending job, inserts it into the
// priority structure, and returns the job id immediately. It never
// blocks on processing capacity.
func (m *Manager) Submit(_ context.Context, event *core.WebhookEvent) (string, error) {
	if event == nil {
		return "", fmt.Errorf("event cannot be nil")
	}

	priority := event.Priority
	if !priority.Valid() {
		if priority != "" {
			m.logger.Warn("unrecognized priority, defaulting to medium", "priority", priority)
		}
		priority = core.PriorityMedium
	}

	j := &job{
		id:         uuid.NewString(),
		event:      event,
		priority:   priority,
		state:      core.JobPending,
		enqueuedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", fmt.Errorf("queue is shutting down, cannot accept new jobs")
	}
	m.seq++
	j.seq = m.seq
	m.jobs[j.id] = j
	m.pending.push(j)
	m.stats.PendingJobs++
	m.mu.Unlock()
	m.cond.Signal()

	m.logger.Info("job submitted",
		"job_id", j.id,
		"repo", event.Repository.FullName,
		"type", event.Type,
		"priority", priority,
	)
	return j.id, nil
}

// Job returns a read-only snapshot, or core.ErrJobNotFound for unknown
// or evicted ids.
func (m *Manager) Job(id string) (*core.JobSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, core.ErrJobNotFound)
	}
	return j.snapshot(), nil
}

// Stats returns a point-in-time occupancy snapshot.
func (m *Manager) Stats() core.QueueStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Stop closes intake, lets the workers drain every pending job, and
// waits for them to finish.
func (m *Manager) Stop() {
	m.logger.Info("stopping queue manager, draining pending jobs")
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cond.Broadcast()
	close(m.janitorCh)
	m.wg.Wait()
	m.logger.Info("queue manager stopped")
}

// worker repeatedly selects the highest-priority pending job and runs a
// processing attempt. The selection lock is never held across the
// attempt itself.
func (m *Manager) worker(id int) {
	defer m.wg.Done()
	m.logger.Info("starting queue worker", "id", id)

	for {
		m.mu.Lock()
		for m.pending.Len() == 0 && !m.closed {
			m.cond.Wait()
		}
		j := m.pending.pop()
		if j == nil {
			// Closed and drained.
			m.mu.Unlock()
			break
		}
		j.state = core.JobProcessing
		j.startedAt = time.Now().UTC()
		j.attempts++
		m.stats.PendingJobs--
		m.stats.ProcessingJobs++
		m.mu.Unlock()

		m.runAttempt(j)
	}

	m.logger.Info("shutting down queue worker", "id", id)
}

// runAttempt drives one job attempt through the processor and the
// evaluator, then settles the outcome.
func (m *Manager) runAttempt(j *job) {
	queueTime := j.startedAt.Sub(j.enqueuedAt)

	changes, err := m.processor.Process(j.event)
	if err != nil {
		// The processor cannot fail for well-formed input by contract;
		// an error here is a bug, so the job fails fast without retry.
		m.logger.Error("event processor returned an error for a well-formed event",
			"job_id", j.id, "error", err)
		m.settle(j, nil, &core.FatalError{Err: err}, queueTime, 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.JobTimeout)
	defer cancel()

	start := time.Now()
	decisions, err := m.evaluate(ctx, j, changes)
	m.settle(j, decisions, err, queueTime, time.Since(start))
}

type evalResult struct {
	decisions []core.AutomationDecision
	err       error
}

// evaluate runs the evaluator under the attempt deadline. On timeout the
// underlying call is abandoned, not force-terminated: the worker slot is
// freed and the goroutine drains into the buffered channel.
func (m *Manager) evaluate(ctx context.Context, j *job, changes core.RepositoryChanges) ([]core.AutomationDecision, error) {
	resultCh := make(chan evalResult, 1)
	go func() {
		decisions, err := m.evaluator.EvaluateChanges(ctx, changes, j.event.Repository)
		resultCh <- evalResult{decisions: decisions, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.decisions, res.err
	case <-ctx.Done():
		return nil, &core.RecoverableError{Err: fmt.Errorf("attempt timed out after %v: %w", m.opts.JobTimeout, ctx.Err())}
	}
}

// settle records metrics and moves the job to its next state: completed,
// retried, or failed.
func (m *Manager) settle(j *job, decisions []core.AutomationDecision, err error, queueTime, evalTime time.Duration) {
	if m.monitor != nil {
		metricID := m.monitor.RecordWebhookProcessing(j.event, time.Since(j.startedAt), queueTime, err == nil)
		errorCount := 0
		if err != nil {
			errorCount = 1
		}
		m.monitor.RecordAnalysisProcessing(metricID, "automation-evaluation", evalTime, queueTime, errorCount, err == nil)
	}

	if err != nil && core.Recoverable(err) {
		m.mu.Lock()
		if j.attempts < m.opts.MaxAttempts && !m.closed {
			m.retryLocked(j, err)
			m.mu.Unlock()
			m.cond.Signal()
			return
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	j.completedAt = time.Now().UTC()
	m.stats.ProcessingJobs--
	if err != nil {
		j.state = core.JobFailed
		j.err = err
		m.stats.FailedJobs++
	} else {
		j.state = core.JobCompleted
		j.decisions = decisions
		m.stats.CompletedJobs++
	}
	rec := m.auditRecord(j)
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("job failed", "job_id", j.id, "attempts", j.attempts, "error", err)
	} else {
		m.logger.Info("job completed", "job_id", j.id, "decisions", len(decisions))
	}

	m.persist(rec, decisions)
}

// retryLocked re-enters a job into the priority structure at its
// original priority. Back placement takes a fresh sequence number so the
// job queues behind same-band newcomers; front placement keeps the
// original sequence. Callers hold m.mu.
func (m *Manager) retryLocked(j *job, err error) {
	j.state = core.JobPending
	j.err = err
	if !m.opts.RetryToFront {
		m.seq++
		j.seq = m.seq
		j.enqueuedAt = time.Now().UTC()
	}
	m.pending.push(j)
	m.stats.ProcessingJobs--
	m.stats.PendingJobs++
	m.logger.Warn("retrying job",
		"job_id", j.id,
		"attempt", j.attempts,
		"max_attempts", m.opts.MaxAttempts,
		"error", err,
	)
}

func (m *Manager) auditRecord(j *job) *storage.JobRecord {
	rec := &storage.JobRecord{
		JobID:       j.id,
		Repository:  j.event.Repository.FullName,
		EventType:   j.event.Type,
		Priority:    j.priority,
		State:       j.state,
		Attempts:    j.attempts,
		EnqueuedAt:  j.enqueuedAt,
		CompletedAt: j.completedAt,
	}
	if j.err != nil {
		rec.Error = j.err.Error()
	}
	return rec
}

// persist writes the audit record. Audit failures are logged, never
// propagated: the job outcome is already settled.
func (m *Manager) persist(rec *storage.JobRecord, decisions []core.AutomationDecision) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.SaveJobResult(ctx, rec, decisions); err != nil {
		m.logger.Error("failed to persist job audit record", "job_id", rec.JobID, "error", err)
	}
}

// janitor evicts terminal jobs past the retention window so the in-memory
// job map stays bounded.
func (m *Manager) janitor() {
	defer m.wg.Done()

	interval := m.opts.Retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.janitorCh:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *Manager) evictExpired() {
	cutoff := time.Now().UTC().Add(-m.opts.Retention)

	m.mu.Lock()
	var evicted int
	for id, j := range m.jobs {
		if (j.state == core.JobCompleted || j.state == core.JobFailed) && j.completedAt.Before(cutoff) {
			delete(m.jobs, id)
			evicted++
		}
	}
	m.mu.Unlock()

	if evicted > 0 {
		m.logger.Debug("evicted expired job records", "count", evicted)
	}
}
