// Package agent owns the worker-slot records of the pool and their state
// machine: Idle -> Busy -> Idle/Error, with ShuttingDown as the graceful
// removal path. The Registry is the exclusive owner of all records; callers
// receive copies, never live pointers.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/agentpool/internal/errors"
)

// record is the registry-private mutable state for one agent.
type record struct {
	agent Agent

	// done is closed when a ShuttingDown agent is deleted, releasing any
	// graceful-removal waiter. Nil until removal is first requested.
	done chan struct{}
}

// Registry owns the set of agent records. All methods are safe for
// concurrent use via an internal mutex; no method holds the mutex across
// a blocking wait.
type Registry struct {
	mu        sync.Mutex
	records   map[string]*record
	minAgents int
	maxAgents int
	tuning    HealthTuning
}

// NewRegistry creates a Registry bounded by [minAgents, maxAgents] with the
// given health tuning. Bounds are assumed validated by the caller.
func NewRegistry(minAgents, maxAgents int, tuning HealthTuning) *Registry {
	return &Registry{
		records:   make(map[string]*record),
		minAgents: minAgents,
		maxAgents: maxAgents,
		tuning:    tuning,
	}
}

// Add creates a new idle agent at full health. Returns a CapacityError when
// the registry is already at maxAgents.
func (r *Registry) Add() (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) >= r.maxAgents {
		return Agent{}, errors.NewCapacityError(r.maxAgents)
	}

	now := time.Now()
	a := Agent{
		ID:            fmt.Sprintf("agent-%s", uuid.NewString()[:8]),
		Status:        StatusIdle,
		Health:        MaxHealth,
		LastHeartbeat: now,
		CreatedAt:     now,
	}
	r.records[a.ID] = &record{agent: a}
	return a, nil
}

// Remove deletes an agent. When force is set, deletion is immediate
// regardless of state. Otherwise an idle agent is deleted immediately, and
// a busy agent is marked ShuttingDown while the caller blocks (bounded by
// gracefulTimeout) until its task completes, after which deletion is forced.
//
// Non-forced removal is refused with ErrBelowMinimum when it would shrink
// the registry below minAgents.
func (r *Registry) Remove(id string, force bool, gracefulTimeout time.Duration) error {
	r.mu.Lock()

	rec, ok := r.records[id]
	if !ok {
		r.mu.Unlock()
		return errors.Wrapf(errors.ErrAgentNotFound, "remove %s", id)
	}

	if !force && len(r.records)-1 < r.minAgents {
		r.mu.Unlock()
		return errors.Wrapf(errors.ErrBelowMinimum, "remove %s", id)
	}

	if force || rec.agent.Status != StatusBusy {
		r.deleteLocked(rec)
		r.mu.Unlock()
		return nil
	}

	// Busy and not forced: drain gracefully, bounded by the timeout.
	rec.agent.Status = StatusShuttingDown
	if rec.done == nil {
		rec.done = make(chan struct{})
	}
	done := rec.done
	r.mu.Unlock()

	select {
	case <-done:
		// Task finished; Complete already deleted the record.
		return nil
	case <-time.After(gracefulTimeout):
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		r.deleteLocked(rec)
	}
	return nil
}

// RecordHeartbeat stamps the agent's liveness signal and nudges its health
// up by the configured recovery, capped at MaxHealth. Status is unchanged:
// an Error agent does not heal its way back to Idle.
func (r *Registry) RecordHeartbeat(id string) (HealthChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return HealthChange{}, errors.Wrapf(errors.ErrAgentNotFound, "heartbeat %s", id)
	}

	old := rec.agent.Health
	rec.agent.LastHeartbeat = time.Now()
	rec.agent.Health = clampHealth(old + r.tuning.HeartbeatRecovery)

	return HealthChange{
		AgentID:   id,
		OldHealth: old,
		NewHealth: rec.agent.Health,
		Status:    rec.agent.Status,
	}, nil
}

// Dispatch marks an idle agent busy with the given task. Returns a
// DispatchError when the agent is not idle at call time; this is a benign
// race and the caller re-queues or retries.
func (r *Registry) Dispatch(id, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return errors.Wrapf(errors.ErrAgentNotFound, "dispatch to %s", id)
	}
	if rec.agent.Status != StatusIdle {
		return errors.NewDispatchError(id, taskID)
	}

	rec.agent.Status = StatusBusy
	rec.agent.CurrentTaskID = taskID
	rec.agent.TaskStartedAt = time.Now()
	return nil
}

// Complete applies a caller-reported task outcome. On success the agent
// returns to Idle; on failure the failure penalty is applied and the agent
// becomes Error when its health falls to the error floor, Idle otherwise.
// A ShuttingDown agent is deleted once its outcome is recorded.
//
// The agent must currently hold a task (Busy, ShuttingDown, or Error via
// monitor decay while running).
func (r *Registry) Complete(id string, success bool) (CompletionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return CompletionResult{}, errors.Wrapf(errors.ErrAgentNotFound, "complete on %s", id)
	}
	if rec.agent.CurrentTaskID == "" {
		return CompletionResult{}, errors.Wrapf(errors.ErrInvalidTransition,
			"agent %s holds no task", id)
	}

	res := CompletionResult{
		TaskID:      rec.agent.CurrentTaskID,
		PriorHealth: rec.agent.Health,
	}
	wasShuttingDown := rec.agent.Status == StatusShuttingDown

	rec.agent.CurrentTaskID = ""
	rec.agent.TaskStartedAt = time.Time{}

	if success {
		rec.agent.CompletedCount++
	} else {
		rec.agent.ErrorCount++
		rec.agent.Health = clampHealth(rec.agent.Health - r.tuning.FailurePenalty)
	}

	if wasShuttingDown {
		r.deleteLocked(rec)
		res.Removed = true
		res.Health = rec.agent.Health
		return res, nil
	}

	switch {
	case !success && rec.agent.Health <= r.tuning.ErrorFloor:
		rec.agent.Status = StatusError
	case rec.agent.Status == StatusError:
		// Monitor decay already collapsed this agent; it stays Error.
	default:
		rec.agent.Status = StatusIdle
	}

	res.Status = rec.agent.Status
	res.Health = rec.agent.Health
	return res, nil
}

// FindIdle returns the healthiest idle agent with health above minHealth.
func (r *Registry) FindIdle(minHealth int) (Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *record
	for _, rec := range r.records {
		if rec.agent.Status != StatusIdle || rec.agent.Health <= minHealth {
			continue
		}
		if best == nil || rec.agent.Health > best.agent.Health {
			best = rec
		}
	}
	if best == nil {
		return Agent{}, false
	}
	return best.agent, true
}

// FindRemovableIdle returns an idle agent suitable for scale-down, preferring
// the least healthy one so capacity sheds its weakest slot first.
func (r *Registry) FindRemovableIdle() (Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var worst *record
	for _, rec := range r.records {
		if rec.agent.Status != StatusIdle {
			continue
		}
		if worst == nil || rec.agent.Health < worst.agent.Health {
			worst = rec
		}
	}
	if worst == nil {
		return Agent{}, false
	}
	return worst.agent, true
}

// PenalizeStale applies the given health penalty to every agent whose last
// heartbeat predates cutoff. An agent reaching zero health transitions to
// Error regardless of its current status. The monitor never removes agents.
// Returns the changes applied, for event publication.
func (r *Registry) PenalizeStale(cutoff time.Time, penalty int) []HealthChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changes []HealthChange
	for _, rec := range r.records {
		if !rec.agent.LastHeartbeat.Before(cutoff) {
			continue
		}

		old := rec.agent.Health
		rec.agent.Health = clampHealth(old - penalty)
		if rec.agent.Health == MinHealth && rec.agent.Status != StatusShuttingDown {
			rec.agent.Status = StatusError
		}

		changes = append(changes, HealthChange{
			AgentID:   rec.agent.ID,
			OldHealth: old,
			NewHealth: rec.agent.Health,
			Status:    rec.agent.Status,
		})
	}
	return changes
}

// MarkIdleShuttingDown transitions every idle agent to ShuttingDown and
// deletes it immediately (an idle agent has nothing to drain). Used by the
// shutdown coordinator. Returns the IDs removed.
func (r *Registry) MarkIdleShuttingDown() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for _, rec := range r.records {
		if rec.agent.Status == StatusIdle || rec.agent.Status == StatusError {
			r.deleteLocked(rec)
			removed = append(removed, rec.agent.ID)
		}
	}
	return removed
}

// DrainBusy marks every busy agent ShuttingDown and waits for its task to
// finish, bounded by the timeout and the context. Unlike Remove it ignores
// the minimum-agent floor; it exists for the shutdown path, where the pool
// drains to zero. Agents whose tasks do not finish in time are
// force-deleted; their IDs are returned.
func (r *Registry) DrainBusy(ctx context.Context, timeout time.Duration) []string {
	type waiter struct {
		id   string
		done chan struct{}
	}

	r.mu.Lock()
	var waiters []waiter
	for _, rec := range r.records {
		if rec.agent.Status != StatusBusy {
			continue
		}
		rec.agent.Status = StatusShuttingDown
		if rec.done == nil {
			rec.done = make(chan struct{})
		}
		waiters = append(waiters, waiter{rec.agent.ID, rec.done})
	}
	r.mu.Unlock()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var forced []string
	expired := false
	for _, w := range waiters {
		if !expired {
			select {
			case <-w.done:
				continue
			case <-deadline.C:
				expired = true
			case <-ctx.Done():
				expired = true
			}
		} else {
			select {
			case <-w.done:
				continue
			default:
			}
		}

		r.mu.Lock()
		if rec, ok := r.records[w.id]; ok {
			r.deleteLocked(rec)
			forced = append(forced, w.id)
		}
		r.mu.Unlock()
	}
	return forced
}

// RemoveAll force-deletes every remaining agent, releasing any graceful
// waiters. Returns the IDs removed.
func (r *Registry) RemoveAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make([]string, 0, len(r.records))
	for _, rec := range r.records {
		r.deleteLocked(rec)
		removed = append(removed, rec.agent.ID)
	}
	return removed
}

// Get returns a copy of the agent with the given ID.
func (r *Registry) Get(id string) (Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Agent{}, false
	}
	return rec.agent, true
}

// List returns copies of all agents in unspecified order.
func (r *Registry) List() []Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	agents := make([]Agent, 0, len(r.records))
	for _, rec := range r.records {
		agents = append(agents, rec.agent)
	}
	return agents
}

// Counts returns a snapshot of registry membership by status.
func (r *Registry) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()

	var c Counts
	c.Total = len(r.records)
	for _, rec := range r.records {
		switch rec.agent.Status {
		case StatusIdle:
			c.Idle++
		case StatusBusy:
			c.Busy++
		case StatusError:
			c.Error++
		case StatusShuttingDown:
			c.ShuttingDown++
		}
	}
	return c
}

// AvgHealth returns the mean health across all agents, 0 when empty.
func (r *Registry) AvgHealth() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) == 0 {
		return 0
	}
	sum := 0
	for _, rec := range r.records {
		sum += rec.agent.Health
	}
	return float64(sum) / float64(len(r.records))
}

// CompletedTotal returns the sum of completed counts across all agents.
func (r *Registry) CompletedTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, rec := range r.records {
		total += rec.agent.CompletedCount
	}
	return total
}

// deleteLocked removes a record and releases any graceful-removal waiter.
// Must be called with r.mu held.
func (r *Registry) deleteLocked(rec *record) {
	delete(r.records, rec.agent.ID)
	if rec.done != nil {
		close(rec.done)
		rec.done = nil
	}
}
