package taskqueue

import "time"

// TaskStatus represents the current state of an admitted task.
type TaskStatus string

const (
	// TaskPending indicates the task is waiting for an agent.
	TaskPending TaskStatus = "pending"

	// TaskRunning indicates the task has been dispatched to an agent.
	TaskRunning TaskStatus = "running"

	// TaskCompleted indicates the caller reported success.
	TaskCompleted TaskStatus = "completed"

	// TaskFailed indicates the caller reported failure, or the pool
	// abandoned the task during shutdown.
	TaskFailed TaskStatus = "failed"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is an admitted unit-of-work descriptor. The pool dispatches tasks to
// agents but never executes or inspects their payloads.
type Task struct {
	// ID uniquely identifies the task within the pool.
	ID string `json:"id"`

	// Priority orders dispatch: higher priorities dispatch first.
	// Equal priorities preserve submission order.
	Priority int `json:"priority"`

	// Payload is opaque to the pool and carried through untouched.
	Payload any `json:"payload,omitempty"`

	// CreatedAt is when the task was admitted.
	CreatedAt time.Time `json:"created_at"`

	// Status is the current execution state.
	Status TaskStatus `json:"status"`

	// AssignedAgentID is the agent holding this task, set on dispatch.
	AssignedAgentID string `json:"assigned_agent_id,omitempty"`

	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// FailureReason carries context for failed tasks.
	FailureReason string `json:"failure_reason,omitempty"`

	// seq is the admission sequence number, used as the FIFO tie-break
	// for equal priorities.
	seq uint64

	// heapIndex is maintained by the pending heap.
	heapIndex int
}

// Counts is a snapshot of queue state. Completed and Failed are cumulative
// and survive history eviction.
type Counts struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
