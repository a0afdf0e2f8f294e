// Package taskqueue holds admitted task descriptors: a priority-ordered
// pending queue plus status bookkeeping for running and recently terminal
// tasks. All methods are safe for concurrent use; callers receive copies,
// never live task pointers.
package taskqueue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/loomworks/agentpool/internal/errors"
)

// pendingHeap orders tasks by descending priority with a stable FIFO
// tie-break on the admission sequence number.
type pendingHeap []*Task

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool {
	if h[i].Priority == h[j].Priority {
		return h[i].seq < h[j].seq
	}
	return h[i].Priority > h[j].Priority
}

func (h pendingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *pendingHeap) Push(x any) {
	t := x.(*Task)
	t.heapIndex = len(*h)
	*h = append(*h, t)
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.heapIndex = -1
	*h = old[:n-1]
	return t
}

// Queue manages admitted tasks through their lifecycle
// (Pending -> Running -> Completed/Failed). Terminal tasks are retained in
// a bounded history and evicted oldest-first past the configured limit.
type Queue struct {
	mu      sync.Mutex
	tasks   map[string]*Task // taskID -> task, pending/running/retained terminal
	pending pendingHeap
	history []string // terminal task IDs in completion order
	limit   int      // completed-history cap

	nextSeq        uint64
	completedTotal int
	failedTotal    int
}

// NewQueue creates a Queue retaining at most historyLimit terminal tasks.
func NewQueue(historyLimit int) *Queue {
	return &Queue{
		tasks: make(map[string]*Task),
		limit: historyLimit,
	}
}

// Admit creates a Pending task and inserts it into the priority order.
// Returns the admitted task as a copy.
func (q *Queue) Admit(id string, priority int, payload any) (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.tasks[id]; exists {
		return Task{}, errors.Wrapf(errors.New("task already admitted"), "admit %s", id)
	}

	q.nextSeq++
	t := &Task{
		ID:        id,
		Priority:  priority,
		Payload:   payload,
		CreatedAt: time.Now(),
		Status:    TaskPending,
		seq:       q.nextSeq,
	}
	q.tasks[id] = t
	heap.Push(&q.pending, t)
	return *t, nil
}

// Take removes a specific pending task from the priority order, for
// immediate dispatch that skips the queue. Returns false if the task is
// not pending.
func (q *Queue) Take(id string) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok || t.Status != TaskPending || t.heapIndex < 0 {
		return Task{}, false
	}
	heap.Remove(&q.pending, t.heapIndex)
	return *t, true
}

// PopNext removes and returns the highest-priority pending task.
// Returns false when nothing is pending.
func (q *Queue) PopNext() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending.Len() == 0 {
		return Task{}, false
	}
	t := heap.Pop(&q.pending).(*Task)
	return *t, true
}

// MarkRunning transitions a task to Running, assigned to the given agent.
// The task must have been removed from the pending order first (via Take
// or PopNext).
func (q *Queue) MarkRunning(id, agentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return errors.Wrapf(errors.ErrTaskNotFound, "mark running %s", id)
	}
	if t.Status != TaskPending {
		return errors.Wrapf(errors.ErrInvalidTransition,
			"cannot run task %s in status %s", id, t.Status)
	}

	t.Status = TaskRunning
	t.AssignedAgentID = agentID
	return nil
}

// Requeue returns a task to the pending order after a failed dispatch
// attempt. The original admission sequence is kept, so the task does not
// lose its FIFO position.
func (q *Queue) Requeue(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return errors.Wrapf(errors.ErrTaskNotFound, "requeue %s", id)
	}
	if t.Status != TaskPending {
		return errors.Wrapf(errors.ErrInvalidTransition,
			"cannot requeue task %s in status %s", id, t.Status)
	}
	if t.heapIndex >= 0 {
		return nil // already queued
	}
	heap.Push(&q.pending, t)
	return nil
}

// MarkCompleted transitions a Running task to Completed.
func (q *Queue) MarkCompleted(id string) error {
	return q.finish(id, TaskCompleted, "")
}

// MarkFailed transitions a Running task to Failed with the given reason.
func (q *Queue) MarkFailed(id, reason string) error {
	return q.finish(id, TaskFailed, reason)
}

// finish moves a running task to a terminal state and retains it in the
// bounded history.
func (q *Queue) finish(id string, status TaskStatus, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return errors.Wrapf(errors.ErrTaskNotFound, "finish %s", id)
	}
	if t.Status != TaskRunning {
		return errors.Wrapf(errors.ErrInvalidTransition,
			"cannot finish task %s in status %s", id, t.Status)
	}

	now := time.Now()
	t.Status = status
	t.CompletedAt = &now
	t.FailureReason = reason
	if status == TaskCompleted {
		q.completedTotal++
	} else {
		q.failedTotal++
	}
	q.retainLocked(id)
	return nil
}

// DrainPending fails every pending task with the given reason and empties
// the priority order. Used by the shutdown coordinator. Returns copies of
// the drained tasks.
func (q *Queue) DrainPending(reason string) []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := make([]Task, 0, q.pending.Len())
	now := time.Now()
	for q.pending.Len() > 0 {
		t := heap.Pop(&q.pending).(*Task)
		t.Status = TaskFailed
		t.CompletedAt = &now
		t.FailureReason = reason
		q.failedTotal++
		q.retainLocked(t.ID)
		drained = append(drained, *t)
	}
	return drained
}

// AbandonRunning fails every running task with the given reason. Used when
// forced shutdown overrides a graceful drain. Returns copies of the
// abandoned tasks.
func (q *Queue) AbandonRunning(reason string) []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var abandoned []Task
	now := time.Now()
	for _, t := range q.tasks {
		if t.Status != TaskRunning {
			continue
		}
		t.Status = TaskFailed
		t.CompletedAt = &now
		t.FailureReason = reason
		q.failedTotal++
		q.retainLocked(t.ID)
		abandoned = append(abandoned, *t)
	}
	return abandoned
}

// Get returns a copy of the task with the given ID.
func (q *Queue) Get(id string) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// PendingLen returns the number of tasks waiting for an agent.
func (q *Queue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// Counts returns a snapshot of queue state. Completed and Failed are
// cumulative totals that survive history eviction.
func (q *Queue) Counts() Counts {
	q.mu.Lock()
	defer q.mu.Unlock()

	c := Counts{
		Pending:   q.pending.Len(),
		Completed: q.completedTotal,
		Failed:    q.failedTotal,
	}
	for _, t := range q.tasks {
		if t.Status == TaskRunning {
			c.Running++
		}
	}
	return c
}

// retainLocked appends a terminal task to the history and evicts the
// oldest entries past the limit. Must be called with q.mu held.
func (q *Queue) retainLocked(id string) {
	q.history = append(q.history, id)
	for len(q.history) > q.limit {
		oldest := q.history[0]
		q.history = q.history[1:]
		delete(q.tasks, oldest)
	}
}
