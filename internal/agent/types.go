package agent

import "time"

// Status represents the current state of an agent slot.
type Status string

const (
	// StatusIdle indicates the agent is eligible for dispatch.
	StatusIdle Status = "idle"

	// StatusBusy indicates the agent holds exactly one in-flight task.
	StatusBusy Status = "busy"

	// StatusError indicates the agent's health collapsed; it receives no
	// further work until removed.
	StatusError Status = "error"

	// StatusShuttingDown indicates removal was requested while the agent
	// was busy; it is deleted once its task finishes or a timeout forces it.
	StatusShuttingDown Status = "shutting_down"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsDispatchable returns true if an agent in this status may receive work.
func (s Status) IsDispatchable() bool {
	return s == StatusIdle
}

// Health bounds. An agent starts at MaxHealth; penalties and recoveries are
// always clamped to this range.
const (
	MinHealth = 0
	MaxHealth = 100
)

// Agent is a read-only snapshot of one logical execution slot. The Registry
// exclusively owns the live records; callers only ever see copies.
type Agent struct {
	// ID uniquely identifies the agent. Assigned at creation, immutable.
	ID string

	// Status is the current lifecycle state.
	Status Status

	// Health is a decaying/recovering score in [MinHealth, MaxHealth] used
	// as a dispatch-eligibility signal, not a literal resource metric.
	Health int

	// CurrentTaskID is the in-flight task reference, set only while Busy
	// (or ShuttingDown with a task still running).
	CurrentTaskID string

	// TaskStartedAt is when the current task was dispatched.
	TaskStartedAt time.Time

	// LastHeartbeat is the most recent liveness signal.
	LastHeartbeat time.Time

	// CompletedCount is the number of successfully completed tasks.
	// Monotonically increasing.
	CompletedCount int

	// ErrorCount is the number of reported task failures.
	// Monotonically increasing.
	ErrorCount int

	// CreatedAt is when the agent joined the registry.
	CreatedAt time.Time
}

// Counts is a snapshot of registry membership by status.
type Counts struct {
	Total        int
	Idle         int
	Busy         int
	Error        int
	ShuttingDown int
}

// HealthTuning parameterizes the agent health model.
type HealthTuning struct {
	// DispatchMinHealth is the minimum health an idle agent needs to
	// receive work.
	DispatchMinHealth int

	// ErrorFloor is the health at or below which a failing agent becomes
	// Error instead of returning to Idle.
	ErrorFloor int

	// FailurePenalty is subtracted from health on a reported task failure.
	FailurePenalty int

	// HeartbeatRecovery is added to health on each received heartbeat.
	HeartbeatRecovery int
}

// DefaultTuning returns the standard health model parameters.
func DefaultTuning() HealthTuning {
	return HealthTuning{
		DispatchMinHealth: 50,
		ErrorFloor:        30,
		FailurePenalty:    20,
		HeartbeatRecovery: 10,
	}
}

// CompletionResult describes the registry-side effects of a reported
// task outcome.
type CompletionResult struct {
	// TaskID is the task the agent was holding.
	TaskID string

	// Status is the agent's status after the transition. Meaningless when
	// Removed is true.
	Status Status

	// Health is the agent's health after any penalty.
	Health int

	// PriorHealth is the agent's health before any penalty. Equal to
	// Health on success.
	PriorHealth int

	// Removed is true when the agent was ShuttingDown and has now been
	// deleted from the registry.
	Removed bool
}

// HealthChange records one agent's health transition during a monitor pass.
type HealthChange struct {
	AgentID   string
	OldHealth int
	NewHealth int
	Status    Status
}

// clampHealth bounds a health value to [MinHealth, MaxHealth].
func clampHealth(h int) int {
	if h < MinHealth {
		return MinHealth
	}
	if h > MaxHealth {
		return MaxHealth
	}
	return h
}
