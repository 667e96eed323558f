package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/hook-warden/internal/core"
	"github.com/sevigo/hook-warden/internal/events"
	"github.com/sevigo/hook-warden/internal/perf"
	"github.com/sevigo/hook-warden/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubEvaluator lets tests script evaluation outcomes and observe the
// order jobs begin processing in.
type stubEvaluator struct {
	mu       sync.Mutex
	started  []string
	gate     chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	fn       func(changes core.RepositoryChanges, repo core.RepositoryInfo) ([]core.AutomationDecision, error)
}

func newStubEvaluator() *stubEvaluator {
	return &stubEvaluator{}
}

func (s *stubEvaluator) EvaluateChanges(ctx context.Context, changes core.RepositoryChanges, repo core.RepositoryInfo) ([]core.AutomationDecision, error) {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxSeen.Load()
		if cur <= prev || s.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}

	s.mu.Lock()
	s.started = append(s.started, repo.FullName)
	s.mu.Unlock()

	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, &core.RecoverableError{Err: ctx.Err()}
		}
	}
	if s.fn != nil {
		return s.fn(changes, repo)
	}
	return []core.AutomationDecision{{Action: core.ActionNoAction, Reason: "stub"}}, nil
}

func (s *stubEvaluator) startedOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.started))
	copy(out, s.started)
	return out
}

func eventNamed(name string, priority core.Priority) *core.WebhookEvent {
	return &core.WebhookEvent{
		Type:       core.EventPush,
		Repository: core.RepositoryInfo{Owner: "sevigo", Name: name, FullName: name},
		Commits:    []core.Commit{{Added: []string{"main.go"}}},
		Timestamp:  time.Now().UTC(),
		Priority:   priority,
	}
}

func newTestManager(t *testing.T, opts Options, evaluator core.Evaluator) *Manager {
	t.Helper()
	logger := testLogger()
	monitor := perf.NewMonitor(time.Minute, perf.Thresholds{}, logger)
	m := NewManager(opts, events.NewProcessor(logger), evaluator, monitor, nil, logger)
	t.Cleanup(m.Stop)
	return m
}

func waitForSettled(t *testing.T, m *Manager, total int) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		stats := m.Stats()
		if stats.CompletedJobs+stats.FailedJobs == total {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("jobs never settled, stats: %+v", m.Stats())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubmit_ReturnsImmediatelyAndDefaultsPriority(t *testing.T) {
	evaluator := newStubEvaluator()
	evaluator.gate = make(chan struct{})
	m := newTestManager(t, Options{MaxWorkers: 1}, evaluator)

	id, err := m.Submit(context.Background(), eventNamed("no-priority", ""))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := m.Job(id)
	require.NoError(t, err)
	assert.Equal(t, core.PriorityMedium, snap.Priority)

	close(evaluator.gate)
	waitForSettled(t, m, 1)
}

func TestSubmit_NilEventIsRejected(t *testing.T) {
	m := newTestManager(t, Options{MaxWorkers: 1}, newStubEvaluator())

	_, err := m.Submit(context.Background(), nil)
	assert.Error(t, err)
}

func TestJob_UnknownIDIsDistinguished(t *testing.T) {
	m := newTestManager(t, Options{MaxWorkers: 1}, newStubEvaluator())

	_, err := m.Job("no-such-job")
	assert.ErrorIs(t, err, core.ErrJobNotFound)
}

func TestPriorityOrdering(t *testing.T) {
	evaluator := newStubEvaluator()
	evaluator.gate = make(chan struct{})
	// One worker so the dequeue order is fully observable.
	m := newTestManager(t, Options{MaxWorkers: 1}, evaluator)

	// The worker grabs the first submission before the rest are queued;
	// ordering is asserted over the remaining four.
	_, err := m.Submit(context.Background(), eventNamed("warmup", core.PriorityLow))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	for _, name := range []string{"medium-1", "medium-2", "medium-3"} {
		_, err := m.Submit(context.Background(), eventNamed(name, core.PriorityMedium))
		require.NoError(t, err)
	}
	_, err = m.Submit(context.Background(), eventNamed("critical-1", core.PriorityCritical))
	require.NoError(t, err)

	close(evaluator.gate)
	waitForSettled(t, m, 5)

	order := evaluator.startedOrder()
	require.Equal(t, []string{"warmup", "critical-1", "medium-1", "medium-2", "medium-3"}, order)
}

func TestPriorityOrdering_FIFOWithinBand(t *testing.T) {
	evaluator := newStubEvaluator()
	evaluator.gate = make(chan struct{})
	m := newTestManager(t, Options{MaxWorkers: 1}, evaluator)

	_, err := m.Submit(context.Background(), eventNamed("warmup", core.PriorityCritical))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	var want []string
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("job-%d", i)
		want = append(want, name)
		_, err := m.Submit(context.Background(), eventNamed(name, core.PriorityHigh))
		require.NoError(t, err)
	}

	close(evaluator.gate)
	waitForSettled(t, m, 11)

	assert.Equal(t, append([]string{"warmup"}, want...), evaluator.startedOrder())
}

func TestBoundedConcurrency(t *testing.T) {
	const limit = 3
	evaluator := newStubEvaluator()
	evaluator.gate = make(chan struct{})
	m := newTestManager(t, Options{MaxWorkers: limit}, evaluator)

	var wg sync.WaitGroup
	for i := 0; i < 4*limit; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Submit(context.Background(), eventNamed(fmt.Sprintf("job-%d", i), core.PriorityMedium))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	time.Sleep(50 * time.Millisecond)
	stats := m.Stats()
	assert.LessOrEqual(t, stats.ProcessingJobs, limit)

	close(evaluator.gate)
	waitForSettled(t, m, 4*limit)

	assert.LessOrEqual(t, int(evaluator.maxSeen.Load()), limit)
}

func TestCapacityScenario(t *testing.T) {
	const total = 100
	evaluator := newStubEvaluator()
	m := newTestManager(t, Options{MaxWorkers: 10}, evaluator)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-done:
				return
			default:
			}
			stats := m.Stats()
			if stats.Total() > total {
				t.Errorf("stats account for more jobs than submitted: %+v", stats)
				return
			}
			if stats.CompletedJobs+stats.FailedJobs == total {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Submit(context.Background(), eventNamed(fmt.Sprintf("push-%d", i), core.PriorityMedium))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	waitForSettled(t, m, total)
	<-done

	stats := m.Stats()
	assert.Equal(t, total, stats.Total())
	assert.Equal(t, total, stats.CompletedJobs+stats.FailedJobs)
	assert.Equal(t, total, stats.CompletedJobs)
}

func TestRetryExhaustion(t *testing.T) {
	const maxAttempts = 3
	var calls atomic.Int32
	evaluator := newStubEvaluator()
	evaluator.fn = func(core.RepositoryChanges, core.RepositoryInfo) ([]core.AutomationDecision, error) {
		calls.Add(1)
		return nil, &core.RecoverableError{Err: errors.New("transient evaluation failure")}
	}
	m := newTestManager(t, Options{MaxWorkers: 1, MaxAttempts: maxAttempts}, evaluator)

	id, err := m.Submit(context.Background(), eventNamed("flaky", core.PriorityMedium))
	require.NoError(t, err)

	waitForSettled(t, m, 1)

	assert.Equal(t, int32(maxAttempts), calls.Load())

	snap, err := m.Job(id)
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, snap.State)
	assert.Equal(t, maxAttempts, snap.Attempts)
	assert.Contains(t, snap.Err, "transient evaluation failure")
}

func TestFatalErrorFailsWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	evaluator := newStubEvaluator()
	evaluator.fn = func(core.RepositoryChanges, core.RepositoryInfo) ([]core.AutomationDecision, error) {
		calls.Add(1)
		return nil, &core.FatalError{Err: errors.New("malformed changes")}
	}
	m := newTestManager(t, Options{MaxWorkers: 1, MaxAttempts: 5}, evaluator)

	id, err := m.Submit(context.Background(), eventNamed("doomed", core.PriorityMedium))
	require.NoError(t, err)

	waitForSettled(t, m, 1)

	assert.Equal(t, int32(1), calls.Load())
	snap, err := m.Job(id)
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, snap.State)
	assert.Equal(t, 1, snap.Attempts)
}

func TestRetryToBack_RetriedJobQueuesBehindNewcomers(t *testing.T) {
	var failedOnce atomic.Bool
	evaluator := newStubEvaluator()
	evaluator.gate = make(chan struct{})
	evaluator.fn = func(_ core.RepositoryChanges, repo core.RepositoryInfo) ([]core.AutomationDecision, error) {
		if repo.FullName == "flaky" && failedOnce.CompareAndSwap(false, true) {
			return nil, &core.RecoverableError{Err: errors.New("first attempt fails")}
		}
		return nil, nil
	}
	m := newTestManager(t, Options{MaxWorkers: 1, MaxAttempts: 2}, evaluator)

	_, err := m.Submit(context.Background(), eventNamed("flaky", core.PriorityMedium))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = m.Submit(context.Background(), eventNamed("fresh", core.PriorityMedium))
	require.NoError(t, err)

	close(evaluator.gate)
	waitForSettled(t, m, 2)

	// flaky starts first, fails, and its retry queues behind fresh.
	assert.Equal(t, []string{"flaky", "fresh", "flaky"}, evaluator.startedOrder())
}

func TestRetryToFront_RetriedJobKeepsItsPlace(t *testing.T) {
	var failedOnce atomic.Bool
	evaluator := newStubEvaluator()
	evaluator.gate = make(chan struct{})
	evaluator.fn = func(_ core.RepositoryChanges, repo core.RepositoryInfo) ([]core.AutomationDecision, error) {
		if repo.FullName == "flaky" && failedOnce.CompareAndSwap(false, true) {
			return nil, &core.RecoverableError{Err: errors.New("first attempt fails")}
		}
		return nil, nil
	}
	m := newTestManager(t, Options{MaxWorkers: 1, MaxAttempts: 2, RetryToFront: true}, evaluator)

	_, err := m.Submit(context.Background(), eventNamed("flaky", core.PriorityMedium))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = m.Submit(context.Background(), eventNamed("fresh", core.PriorityMedium))
	require.NoError(t, err)

	close(evaluator.gate)
	waitForSettled(t, m, 2)

	assert.Equal(t, []string{"flaky", "flaky", "fresh"}, evaluator.startedOrder())
}

func TestAttemptTimeoutIsRecoverable(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	var calls atomic.Int32
	evaluator := newStubEvaluator()
	evaluator.fn = func(core.RepositoryChanges, core.RepositoryInfo) ([]core.AutomationDecision, error) {
		if calls.Add(1) == 1 {
			<-block // first attempt hangs past the timeout
			return nil, nil
		}
		return []core.AutomationDecision{{Action: core.ActionNotify}}, nil
	}
	m := newTestManager(t, Options{MaxWorkers: 1, MaxAttempts: 2, JobTimeout: 50 * time.Millisecond}, evaluator)

	id, err := m.Submit(context.Background(), eventNamed("slow", core.PriorityMedium))
	require.NoError(t, err)

	waitForSettled(t, m, 1)

	snap, err := m.Job(id)
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, snap.State)
	assert.Equal(t, 2, snap.Attempts)
}

func TestCompletedJobCarriesDecisions(t *testing.T) {
	evaluator := newStubEvaluator()
	evaluator.fn = func(core.RepositoryChanges, core.RepositoryInfo) ([]core.AutomationDecision, error) {
		return []core.AutomationDecision{
			{Action: core.ActionNotify, Reason: "dependency changes detected"},
			{Action: core.ActionRequestReview, Reason: "large change"},
		}, nil
	}
	m := newTestManager(t, Options{MaxWorkers: 2}, evaluator)

	id, err := m.Submit(context.Background(), eventNamed("decided", core.PriorityHigh))
	require.NoError(t, err)

	waitForSettled(t, m, 1)

	snap, err := m.Job(id)
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, snap.State)
	require.Len(t, snap.Decisions, 2)
	assert.Equal(t, core.ActionNotify, snap.Decisions[0].Action)
	assert.Empty(t, snap.Err)
}

func TestTerminalJobsArePersisted(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	saved := make(chan struct{}, 1)
	store.EXPECT().
		SaveJobResult(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, any, any) error {
			saved <- struct{}{}
			return nil
		})

	logger := testLogger()
	m := NewManager(Options{MaxWorkers: 1}, events.NewProcessor(logger), newStubEvaluator(), nil, store, logger)
	defer m.Stop()

	_, err := m.Submit(context.Background(), eventNamed("audited", core.PriorityMedium))
	require.NoError(t, err)

	select {
	case <-saved:
	case <-time.After(5 * time.Second):
		t.Fatal("audit record was never persisted")
	}
}

func TestJanitorEvictsExpiredTerminalJobs(t *testing.T) {
	evaluator := newStubEvaluator()
	m := newTestManager(t, Options{MaxWorkers: 1, Retention: 100 * time.Millisecond}, evaluator)

	id, err := m.Submit(context.Background(), eventNamed("short-lived", core.PriorityMedium))
	require.NoError(t, err)
	waitForSettled(t, m, 1)

	// The record stays queryable until the retention window passes and
	// the janitor sweeps it out.
	_, err = m.Job(id)
	require.NoError(t, err)

	deadline := time.After(10 * time.Second)
	for {
		if _, err := m.Job(id); errors.Is(err, core.ErrJobNotFound) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("settled job was never evicted")
		case <-time.After(20 * time.Millisecond):
		}
	}

	// Eviction removes the record, not the accounting.
	assert.Equal(t, 1, m.Stats().CompletedJobs)
}

func TestStopDrainsPendingJobs(t *testing.T) {
	evaluator := newStubEvaluator()
	logger := testLogger()
	m := NewManager(Options{MaxWorkers: 2}, events.NewProcessor(logger), evaluator, nil, nil, logger)

	for i := 0; i < 20; i++ {
		_, err := m.Submit(context.Background(), eventNamed(fmt.Sprintf("drain-%d", i), core.PriorityMedium))
		require.NoError(t, err)
	}

	m.Stop()

	stats := m.Stats()
	assert.Equal(t, 20, stats.CompletedJobs)
	assert.Zero(t, stats.PendingJobs)
	assert.Zero(t, stats.ProcessingJobs)

	_, err := m.Submit(context.Background(), eventNamed("late", core.PriorityMedium))
	assert.Error(t, err)
}
