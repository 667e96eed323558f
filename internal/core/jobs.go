package core

import (
	"context"
	"time"
)

// JobState is the lifecycle state of a queued job. Transitions are
// monotonic: Pending → Processing → {Completed, Failed}, with
// Processing → Pending reachable only through an explicit retry that
// increments the attempt counter.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// JobSnapshot is the read-only view of a job returned by queries. The
// queue owns the live record; callers only ever see copies.
type JobSnapshot struct {
	ID          string
	Event       *WebhookEvent
	Priority    Priority
	State       JobState
	Attempts    int
	EnqueuedAt  time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	Decisions   []AutomationDecision
	Err         string
}

// QueueStats is a point-in-time snapshot of queue occupancy.
type QueueStats struct {
	PendingJobs    int `json:"pendingJobs"`
	ProcessingJobs int `json:"processingJobs"`
	CompletedJobs  int `json:"completedJobs"`
	FailedJobs     int `json:"failedJobs"`
}

// Total is the number of jobs the queue has ever accepted and still
// accounts for.
func (s QueueStats) Total() int {
	return s.PendingJobs + s.ProcessingJobs + s.CompletedJobs + s.FailedJobs
}

// QueueManager accepts webhook events and drives them through the
// processing pipeline asynchronously. Submit never blocks on processing
// capacity; callers observe progress through Job and Stats.
type QueueManager interface {
	// Submit validates the event's priority (defaulting to medium),
	// creates a pending job, and returns its id immediately.
	Submit(ctx context.Context, event *WebhookEvent) (string, error)

	// Job returns a snapshot of the job, or ErrJobNotFound for ids that
	// never existed or were evicted.
	Job(id string) (*JobSnapshot, error)

	// Stats returns a point-in-time occupancy snapshot.
	Stats() QueueStats

	// Stop drains the queue: intake closes, in-flight jobs finish.
	Stop()
}

// Processor turns a webhook event into a normalized change description.
// Implementations must be pure: same event in, structurally equal
// changes out, no I/O.
type Processor interface {
	Process(event *WebhookEvent) (RepositoryChanges, error)
}

// Evaluator produces automation decisions from a change description and
// repository context. Implementations must be side-effect free with
// respect to external systems; they return decisions, they do not
// execute them.
type Evaluator interface {
	EvaluateChanges(ctx context.Context, changes RepositoryChanges, repo RepositoryInfo) ([]AutomationDecision, error)
}
