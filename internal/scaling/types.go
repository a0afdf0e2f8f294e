package scaling

// Action represents a scaling decision action.
type Action string

const (
	// ActionScaleUp indicates an agent should be added.
	ActionScaleUp Action = "scale_up"

	// ActionScaleDown indicates an agent should be removed.
	ActionScaleDown Action = "scale_down"

	// ActionNone indicates no scaling change is needed.
	ActionNone Action = "none"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Decision is the result of evaluating a scaling policy against the
// current pool state.
type Decision struct {
	// Action is the recommended scaling action.
	Action Action

	// Delta is the number of agents to add (positive) or remove (negative).
	// Policies move one agent at a time, so Delta is always -1, 0, or 1.
	Delta int

	// Reason is a human-readable explanation of the decision.
	Reason string
}

// Snapshot captures the pool state a policy evaluates against.
type Snapshot struct {
	// Total is the number of agents in the pool, regardless of status.
	Total int

	// Idle is the number of agents ready to accept work.
	Idle int

	// Busy is the number of agents currently running a task.
	Busy int

	// Error is the number of agents quarantined by health decay.
	Error int

	// Pending is the number of queued tasks awaiting dispatch.
	Pending int
}

// Occupancy returns the fraction of working agents among those able to
// take work. Quarantined agents do not count toward capacity. Returns 0
// when no agents can take work.
func (s Snapshot) Occupancy() float64 {
	capacity := s.Idle + s.Busy
	if capacity == 0 {
		return 0
	}
	return float64(s.Busy) / float64(capacity)
}

// IdleRatio returns the fraction of idle agents among those able to take
// work. Quarantined agents do not count toward capacity. Returns 0 when
// no agents can take work.
func (s Snapshot) IdleRatio() float64 {
	capacity := s.Idle + s.Busy
	if capacity == 0 {
		return 0
	}
	return float64(s.Idle) / float64(capacity)
}
