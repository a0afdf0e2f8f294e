package scaling

import (
	"fmt"
	"sync"
	"time"
)

// Default policy values.
const (
	defaultMinAgents          = 1
	defaultMaxAgents          = 5
	defaultScaleUpThreshold   = 0.8
	defaultScaleDownThreshold = 0.5
	defaultQueueScaleUpDepth  = 3
)

// Policy names accepted by NewPolicy.
const (
	PolicyOccupancy  = "occupancy"
	PolicyQueueDepth = "queue_depth"
)

// Policy recommends agent count changes for a pool snapshot.
// Implementations are safe for concurrent use.
type Policy interface {
	// Evaluate inspects the pool snapshot and returns a scaling decision.
	Evaluate(snap Snapshot) Decision

	// Name identifies the policy in logs and events.
	Name() string
}

// Option configures a policy.
type Option func(*settings)

// WithMinAgents sets the minimum number of agents to maintain.
func WithMinAgents(n int) Option {
	return func(s *settings) { s.minAgents = n }
}

// WithMaxAgents sets the maximum number of agents allowed.
func WithMaxAgents(n int) Option {
	return func(s *settings) { s.maxAgents = n }
}

// WithScaleUpThreshold sets the occupancy ratio at or above which the
// occupancy policy recommends adding an agent.
func WithScaleUpThreshold(ratio float64) Option {
	return func(s *settings) { s.scaleUpThreshold = ratio }
}

// WithScaleDownThreshold sets the idle ratio at or above which the
// occupancy policy recommends removing an idle agent.
func WithScaleDownThreshold(ratio float64) Option {
	return func(s *settings) { s.scaleDownThreshold = ratio }
}

// WithQueueScaleUpDepth sets the pending task count at or above which the
// queue-depth policy recommends adding an agent.
func WithQueueScaleUpDepth(n int) Option {
	return func(s *settings) { s.queueScaleUpDepth = n }
}

// WithCooldown sets the minimum time between scaling decisions. Zero
// disables the cooldown, leaving pacing to the evaluation tick.
func WithCooldown(d time.Duration) Option {
	return func(s *settings) { s.cooldown = d }
}

// settings holds the knobs shared by all policies.
type settings struct {
	minAgents          int
	maxAgents          int
	scaleUpThreshold   float64
	scaleDownThreshold float64
	queueScaleUpDepth  int
	cooldown           time.Duration
}

func newSettings(opts ...Option) settings {
	s := settings{
		minAgents:          defaultMinAgents,
		maxAgents:          defaultMaxAgents,
		scaleUpThreshold:   defaultScaleUpThreshold,
		scaleDownThreshold: defaultScaleDownThreshold,
		queueScaleUpDepth:  defaultQueueScaleUpDepth,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewPolicy creates the named policy with the given options. Unset options
// use defaults. Returns an error for an unknown name.
func NewPolicy(name string, opts ...Option) (Policy, error) {
	switch name {
	case PolicyOccupancy:
		return NewOccupancyPolicy(opts...), nil
	case PolicyQueueDepth:
		return NewQueueDepthPolicy(opts...), nil
	default:
		return nil, fmt.Errorf("unknown scaling policy %q", name)
	}
}

// OccupancyPolicy scales on the busy and idle shares of working agents.
// It recommends one agent up when the busy ratio reaches the scale-up
// threshold and one agent down when the idle ratio reaches the
// scale-down threshold with an idle agent to spare.
type OccupancyPolicy struct {
	mu           sync.Mutex
	settings     settings
	lastDecision time.Time
}

// NewOccupancyPolicy creates an OccupancyPolicy with the given options.
func NewOccupancyPolicy(opts ...Option) *OccupancyPolicy {
	return &OccupancyPolicy{settings: newSettings(opts...)}
}

// Name implements Policy.
func (p *OccupancyPolicy) Name() string { return PolicyOccupancy }

// Evaluate implements Policy.
func (p *OccupancyPolicy) Evaluate(snap Snapshot) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d, active := cooldownActive(p.settings, p.lastDecision); active {
		return d
	}

	occ := snap.Occupancy()

	if occ >= p.settings.scaleUpThreshold && snap.Total < p.settings.maxAgents {
		p.lastDecision = time.Now()
		return Decision{
			Action: ActionScaleUp,
			Delta:  1,
			Reason: fmt.Sprintf("occupancy %.2f at or above %.2f with %d agents",
				occ, p.settings.scaleUpThreshold, snap.Total),
		}
	}

	if idle := snap.IdleRatio(); idle >= p.settings.scaleDownThreshold &&
		snap.Idle > 0 && snap.Total > p.settings.minAgents {
		p.lastDecision = time.Now()
		return Decision{
			Action: ActionScaleDown,
			Delta:  -1,
			Reason: fmt.Sprintf("idle ratio %.2f at or above %.2f with %d agents",
				idle, p.settings.scaleDownThreshold, snap.Total),
		}
	}

	return Decision{Action: ActionNone, Reason: "no scaling needed"}
}

// QueueDepthPolicy scales on the number of queued tasks. It recommends
// one agent up when the backlog reaches the configured depth and one
// agent down when the queue is empty and an idle agent is spare.
type QueueDepthPolicy struct {
	mu           sync.Mutex
	settings     settings
	lastDecision time.Time
}

// NewQueueDepthPolicy creates a QueueDepthPolicy with the given options.
func NewQueueDepthPolicy(opts ...Option) *QueueDepthPolicy {
	return &QueueDepthPolicy{settings: newSettings(opts...)}
}

// Name implements Policy.
func (p *QueueDepthPolicy) Name() string { return PolicyQueueDepth }

// Evaluate implements Policy.
func (p *QueueDepthPolicy) Evaluate(snap Snapshot) Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d, active := cooldownActive(p.settings, p.lastDecision); active {
		return d
	}

	if snap.Pending >= p.settings.queueScaleUpDepth && snap.Total < p.settings.maxAgents {
		p.lastDecision = time.Now()
		return Decision{
			Action: ActionScaleUp,
			Delta:  1,
			Reason: fmt.Sprintf("%d pending tasks at or above depth %d with %d agents",
				snap.Pending, p.settings.queueScaleUpDepth, snap.Total),
		}
	}

	if snap.Pending == 0 && snap.Idle > 0 && snap.Total > p.settings.minAgents {
		p.lastDecision = time.Now()
		return Decision{
			Action: ActionScaleDown,
			Delta:  -1,
			Reason: fmt.Sprintf("empty queue with %d idle of %d agents",
				snap.Idle, snap.Total),
		}
	}

	return Decision{Action: ActionNone, Reason: "no scaling needed"}
}

func cooldownActive(s settings, last time.Time) (Decision, bool) {
	if s.cooldown <= 0 || last.IsZero() {
		return Decision{}, false
	}
	if time.Since(last) < s.cooldown {
		return Decision{Action: ActionNone, Reason: "cooldown period active"}, true
	}
	return Decision{}, false
}
