// Package event defines event types for decoupling pool components.
// These events let the registry, queue, scaling loop, and operator surfaces
// (CLI, dashboard) communicate without direct dependencies.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "agent.added", "task.dispatched")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Agent Lifecycle Events
// -----------------------------------------------------------------------------

// AgentAddedEvent is emitted when an agent joins the registry, either at
// pool startup or through autoscaling.
type AgentAddedEvent struct {
	baseEvent
	AgentID string // Unique identifier for the agent
	Total   int    // Registry size after the addition
}

// NewAgentAddedEvent creates an AgentAddedEvent.
func NewAgentAddedEvent(agentID string, total int) AgentAddedEvent {
	return AgentAddedEvent{
		baseEvent: newBaseEvent("agent.added"),
		AgentID:   agentID,
		Total:     total,
	}
}

// AgentRemovedEvent is emitted when an agent leaves the registry.
type AgentRemovedEvent struct {
	baseEvent
	AgentID string // Unique identifier for the agent
	Forced  bool   // Whether removal bypassed the graceful drain
	Reason  string // Why the agent was removed (e.g., "scale_down", "shutdown")
	Total   int    // Registry size after the removal
}

// NewAgentRemovedEvent creates an AgentRemovedEvent.
func NewAgentRemovedEvent(agentID string, forced bool, reason string, total int) AgentRemovedEvent {
	return AgentRemovedEvent{
		baseEvent: newBaseEvent("agent.removed"),
		AgentID:   agentID,
		Forced:    forced,
		Reason:    reason,
		Total:     total,
	}
}

// AgentHealthChangedEvent is emitted when an agent's health score changes,
// whether from a heartbeat recovery, a failure penalty, or monitor decay.
type AgentHealthChangedEvent struct {
	baseEvent
	AgentID   string // Agent whose health changed
	OldHealth int    // Health before the change
	NewHealth int    // Health after the change
	Status    string // Agent status after the change
}

// NewAgentHealthChangedEvent creates an AgentHealthChangedEvent.
func NewAgentHealthChangedEvent(agentID string, oldHealth, newHealth int, status string) AgentHealthChangedEvent {
	return AgentHealthChangedEvent{
		baseEvent: newBaseEvent("agent.health_changed"),
		AgentID:   agentID,
		OldHealth: oldHealth,
		NewHealth: newHealth,
		Status:    status,
	}
}

// -----------------------------------------------------------------------------
// Task Lifecycle Events
// -----------------------------------------------------------------------------

// TaskSubmittedEvent is emitted when a task is admitted into the pool.
type TaskSubmittedEvent struct {
	baseEvent
	TaskID   string // Task identifier
	Priority int    // Task priority (higher dispatches first)
	Queued   bool   // True if the task entered the queue instead of dispatching immediately
}

// NewTaskSubmittedEvent creates a TaskSubmittedEvent.
func NewTaskSubmittedEvent(taskID string, priority int, queued bool) TaskSubmittedEvent {
	return TaskSubmittedEvent{
		baseEvent: newBaseEvent("task.submitted"),
		TaskID:    taskID,
		Priority:  priority,
		Queued:    queued,
	}
}

// TaskDispatchedEvent is emitted when a task is assigned to an agent.
type TaskDispatchedEvent struct {
	baseEvent
	TaskID  string // Task identifier
	AgentID string // Agent the task was assigned to
}

// NewTaskDispatchedEvent creates a TaskDispatchedEvent.
func NewTaskDispatchedEvent(taskID, agentID string) TaskDispatchedEvent {
	return TaskDispatchedEvent{
		baseEvent: newBaseEvent("task.dispatched"),
		TaskID:    taskID,
		AgentID:   agentID,
	}
}

// TaskCompletedEvent is emitted when a caller reports a task outcome.
type TaskCompletedEvent struct {
	baseEvent
	TaskID  string // Task identifier
	AgentID string // Agent that held the task
	Success bool   // Caller-reported outcome
	Reason  string // Additional context (failure reason if unsuccessful)
}

// NewTaskCompletedEvent creates a TaskCompletedEvent.
func NewTaskCompletedEvent(taskID, agentID string, success bool, reason string) TaskCompletedEvent {
	return TaskCompletedEvent{
		baseEvent: newBaseEvent("task.completed"),
		TaskID:    taskID,
		AgentID:   agentID,
		Success:   success,
		Reason:    reason,
	}
}

// QueueDepthChangedEvent is emitted whenever the pending queue depth changes.
type QueueDepthChangedEvent struct {
	baseEvent
	Pending   int // Tasks waiting for an agent
	Running   int // Tasks currently dispatched
	Completed int // Tasks completed successfully (retained history)
	Failed    int // Tasks that failed (retained history)
}

// NewQueueDepthChangedEvent creates a QueueDepthChangedEvent.
func NewQueueDepthChangedEvent(pending, running, completed, failed int) QueueDepthChangedEvent {
	return QueueDepthChangedEvent{
		baseEvent: newBaseEvent("queue.depth_changed"),
		Pending:   pending,
		Running:   running,
		Completed: completed,
		Failed:    failed,
	}
}

// -----------------------------------------------------------------------------
// Scaling Events
// -----------------------------------------------------------------------------

// ScalingDecisionEvent is emitted when the autoscaler makes a non-trivial
// scaling decision.
type ScalingDecisionEvent struct {
	baseEvent
	Action string // "scale_up" or "scale_down"
	Delta  int    // Agents to add (positive) or remove (negative)
	Reason string // Human-readable explanation
	Total  int    // Registry size at evaluation time
}

// NewScalingDecisionEvent creates a ScalingDecisionEvent.
func NewScalingDecisionEvent(action string, delta int, reason string, total int) ScalingDecisionEvent {
	return ScalingDecisionEvent{
		baseEvent: newBaseEvent("scaling.decision"),
		Action:    action,
		Delta:     delta,
		Reason:    reason,
		Total:     total,
	}
}

// -----------------------------------------------------------------------------
// Shutdown Events
// -----------------------------------------------------------------------------

// ShutdownStartedEvent is emitted when a graceful shutdown begins.
type ShutdownStartedEvent struct {
	baseEvent
	Busy int // Agents still holding in-flight tasks at shutdown start
}

// NewShutdownStartedEvent creates a ShutdownStartedEvent.
func NewShutdownStartedEvent(busy int) ShutdownStartedEvent {
	return ShutdownStartedEvent{
		baseEvent: newBaseEvent("pool.shutdown_started"),
		Busy:      busy,
	}
}

// ShutdownCompletedEvent is emitted when shutdown terminates, gracefully
// or after the drain deadline forced termination.
type ShutdownCompletedEvent struct {
	baseEvent
	Graceful  bool // True if all in-flight tasks finished before the deadline
	Abandoned int  // Tasks left running when the deadline fired
}

// NewShutdownCompletedEvent creates a ShutdownCompletedEvent.
func NewShutdownCompletedEvent(graceful bool, abandoned int) ShutdownCompletedEvent {
	return ShutdownCompletedEvent{
		baseEvent: newBaseEvent("pool.shutdown_completed"),
		Graceful:  graceful,
		Abandoned: abandoned,
	}
}
