package queue

import (
	"container/heap"
	"time"

	"github.com/sevigo/hook-warden/internal/core"
)

// job is the queue-owned record wrapping one webhook event. It is only
// ever touched under the manager's lock; everything handed outward is a
// copy.
type job struct {
	id          string
	event       *core.WebhookEvent
	priority    core.Priority
	state       core.JobState
	attempts    int
	seq         uint64
	enqueuedAt  time.Time
	startedAt   time.Time
	completedAt time.Time
	decisions   []core.AutomationDecision
	err         error

	index int // heap bookkeeping
}

func (j *job) snapshot() *core.JobSnapshot {
	snap := &core.JobSnapshot{
		ID:          j.id,
		Event:       j.event,
		Priority:    j.priority,
		State:       j.state,
		Attempts:    j.attempts,
		EnqueuedAt:  j.enqueuedAt,
		StartedAt:   j.startedAt,
		CompletedAt: j.completedAt,
	}
	if len(j.decisions) > 0 {
		snap.Decisions = make([]core.AutomationDecision, len(j.decisions))
		copy(snap.Decisions, j.decisions)
	}
	if j.err != nil {
		snap.Err = j.err.Error()
	}
	return snap
}

// jobHeap orders pending jobs by priority band, then by submission
// sequence within a band. The sequence counter, not the wall clock,
// carries FIFO ordering so equal timestamps can never reorder a band.
type jobHeap []*job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	ri, rj := h[i].priority.Rank(), h[j].priority.Rank()
	if ri != rj {
		return ri < rj
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	j := x.(*job)
	j.index = len(*h)
	*h = append(*h, j)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*h = old[:n-1]
	return j
}

func (h *jobHeap) push(j *job) {
	heap.Push(h, j)
}

// pop removes and returns the highest-priority pending job, or nil when
// the heap is empty.
func (h *jobHeap) pop() *job {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*job)
}
