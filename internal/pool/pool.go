package pool

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/agentpool/internal/agent"
	"github.com/loomworks/agentpool/internal/config"
	"github.com/loomworks/agentpool/internal/errors"
	"github.com/loomworks/agentpool/internal/event"
	"github.com/loomworks/agentpool/internal/logging"
	"github.com/loomworks/agentpool/internal/scaling"
	"github.com/loomworks/agentpool/internal/taskqueue"
)

// Pool coordinates agents, the task queue, and the background loops.
// One mutex serializes the compound mutations (submit then dispatch,
// complete then backfill, the monitor and autoscaler passes) so a task
// can never be admitted or dispatched while a shutdown drain is sweeping
// the queue. The lock is never held across a blocking wait.
type Pool struct {
	mu  sync.Mutex
	cfg *config.Pool

	registry *agent.Registry
	queue    *taskqueue.Queue
	policy   scaling.Policy
	bus      *event.Bus
	logger   *logging.Logger

	started      bool
	shuttingDown bool
	startedAt    time.Time

	stopCh chan struct{}
	loops  sync.WaitGroup

	shutdownOnce sync.Once
	shutdownErr  error
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithBus sets the event bus. Defaults to a fresh bus.
func WithBus(b *event.Bus) Option {
	return func(p *Pool) { p.bus = b }
}

// WithPolicy overrides the scaling policy selected by the configuration.
func WithPolicy(policy scaling.Policy) Option {
	return func(p *Pool) { p.policy = policy }
}

// New creates a Pool from the given configuration. The configuration is
// validated; a nil config uses defaults.
func New(cfg *config.Pool, opts ...Option) (*Pool, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if verrs := cfg.Validate(); len(verrs) > 0 {
		return nil, errors.NewConfigurationError(config.ValidationErrors(verrs).Error())
	}

	tuning := agent.HealthTuning{
		DispatchMinHealth: cfg.Health.DispatchMinHealth,
		ErrorFloor:        cfg.Health.ErrorFloor,
		FailurePenalty:    cfg.Health.FailurePenalty,
		HeartbeatRecovery: cfg.Health.HeartbeatRecovery,
	}

	p := &Pool{
		cfg:      cfg,
		registry: agent.NewRegistry(cfg.MinAgents, cfg.MaxAgents, tuning),
		queue:    taskqueue.NewQueue(cfg.Queue.CompletedHistoryLimit),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.bus == nil {
		p.bus = event.NewBus()
	}
	if p.logger == nil {
		p.logger = logging.NopLogger()
	}
	if p.policy == nil {
		policy, err := scaling.NewPolicy(cfg.Scaling.Policy,
			scaling.WithMinAgents(cfg.MinAgents),
			scaling.WithMaxAgents(cfg.MaxAgents),
			scaling.WithScaleUpThreshold(cfg.Scaling.ScaleUpThreshold),
			scaling.WithScaleDownThreshold(cfg.Scaling.ScaleDownThreshold),
			scaling.WithQueueScaleUpDepth(cfg.Scaling.QueueScaleUpDepth),
		)
		if err != nil {
			return nil, errors.NewConfigurationError(err.Error()).WithField("scaling.policy")
		}
		p.policy = policy
	}

	return p, nil
}

// Start spawns the minimum agent set and launches the health monitor and
// autoscaler loops. Starting twice is an error.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.ErrPoolAlreadyStarted
	}
	if p.shuttingDown {
		return errors.ErrPoolShuttingDown
	}

	for i := 0; i < p.cfg.MinAgents; i++ {
		a, err := p.registry.Add()
		if err != nil {
			return errors.Wrap(err, "spawn initial agents")
		}
		p.bus.Publish(event.NewAgentAddedEvent(a.ID, p.registry.Counts().Total))
	}

	p.started = true
	p.startedAt = time.Now()

	p.loops.Add(2)
	go p.runHealthMonitor()
	go p.runAutoscaler()

	p.logger.Info("pool started",
		"min_agents", p.cfg.MinAgents,
		"max_agents", p.cfg.MaxAgents,
		"scaling_policy", p.policy.Name(),
	)
	return nil
}

// Submit admits a task and dispatches it immediately if a healthy idle
// agent is available. Otherwise the task enters the priority queue and the
// pool makes one best-effort attempt to grow by a single agent for it;
// if growth fails (capacity reached) the task stays pending for the
// autoscaler and future completions to pick up. An empty id gets a
// generated one. Returns the admitted task snapshot.
func (p *Pool) Submit(id string, priority int, payload any) (taskqueue.Task, error) {
	if id == "" {
		id = "task-" + uuid.NewString()[:8]
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return taskqueue.Task{}, errors.ErrPoolNotStarted
	}
	if p.shuttingDown {
		return taskqueue.Task{}, errors.Wrapf(errors.ErrPoolShuttingDown, "submit %s", id)
	}

	task, err := p.queue.Admit(id, priority, payload)
	if err != nil {
		return taskqueue.Task{}, err
	}

	// Dispatch may pick a higher-priority task over the one just admitted.
	p.dispatchNext()

	if cur, ok := p.queue.Get(task.ID); ok {
		task = cur
	}
	if task.Status == taskqueue.TaskPending {
		// No eligible idle agent took it; try to grow by one agent and
		// dispatch again. Capacity errors are routine here, not fatal.
		if a, err := p.registry.Add(); err == nil {
			p.bus.Publish(event.NewAgentAddedEvent(a.ID, p.registry.Counts().Total))
			p.logger.WithAgent(a.ID).Debug("agent added for queued task", "task_id", task.ID)
			p.dispatchNext()
			if cur, ok := p.queue.Get(task.ID); ok {
				task = cur
			}
		}
	}
	queued := task.Status == taskqueue.TaskPending
	p.bus.Publish(event.NewTaskSubmittedEvent(task.ID, task.Priority, queued))
	p.publishQueueDepth()
	p.logger.WithTask(task.ID).Debug("task submitted",
		"priority", task.Priority, "queued", queued)
	return task, nil
}

// Complete records the outcome of an agent's current task. On success the
// agent returns to Idle; on failure it takes a health penalty and may be
// quarantined. Either way the pool tries to backfill the freed agent from
// the queue.
func (p *Pool) Complete(agentID string, success bool, failureReason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.registry.Complete(agentID, success)
	if err != nil {
		return err
	}

	if success {
		if err := p.queue.MarkCompleted(res.TaskID); err != nil {
			p.logger.WithTask(res.TaskID).Warn("completion bookkeeping failed", "error", err)
		}
	} else {
		if failureReason == "" {
			failureReason = "reported failed by agent"
		}
		if err := p.queue.MarkFailed(res.TaskID, failureReason); err != nil {
			p.logger.WithTask(res.TaskID).Warn("completion bookkeeping failed", "error", err)
		}
	}

	p.bus.Publish(event.NewTaskCompletedEvent(res.TaskID, agentID, success, failureReason))
	if res.Removed {
		p.bus.Publish(event.NewAgentRemovedEvent(agentID, false, "graceful removal complete",
			p.registry.Counts().Total))
	} else if !success {
		p.bus.Publish(event.NewAgentHealthChangedEvent(agentID, res.PriorHealth,
			res.Health, res.Status.String()))
		if res.Status == agent.StatusError {
			p.logger.WithAgent(agentID).Warn("agent quarantined", "health", res.Health)
		}
	}
	p.publishQueueDepth()

	if !p.shuttingDown {
		p.dispatchNext()
	}
	return nil
}

// Heartbeat records a liveness signal from an agent, recovering some of
// its health.
func (p *Pool) Heartbeat(agentID string) error {
	change, err := p.registry.RecordHeartbeat(agentID)
	if err != nil {
		return err
	}
	if change.NewHealth != change.OldHealth {
		p.bus.Publish(event.NewAgentHealthChangedEvent(
			agentID, change.OldHealth, change.NewHealth, change.Status.String()))
	}
	return nil
}

// AddAgent manually grows the pool by one agent.
func (p *Pool) AddAgent() (agent.Agent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shuttingDown {
		return agent.Agent{}, errors.Wrap(errors.ErrPoolShuttingDown, "add agent")
	}

	a, err := p.registry.Add()
	if err != nil {
		return agent.Agent{}, err
	}
	p.bus.Publish(event.NewAgentAddedEvent(a.ID, p.registry.Counts().Total))
	p.logger.WithAgent(a.ID).Info("agent added", "total", p.registry.Counts().Total)

	// The new agent may unblock queued work.
	p.dispatchNext()
	return a, nil
}

// RemoveAgent removes an agent. A busy agent is drained gracefully,
// bounded by the configured shutdown timeout, unless force is set.
func (p *Pool) RemoveAgent(agentID string, force bool) error {
	if err := p.registry.Remove(agentID, force, p.cfg.GracefulShutdownTimeout()); err != nil {
		return err
	}
	p.bus.Publish(event.NewAgentRemovedEvent(agentID, force, "removed by operator",
		p.registry.Counts().Total))
	p.logger.WithAgent(agentID).Info("agent removed", "forced", force)
	return nil
}

// Agents returns a snapshot of every agent in the pool.
func (p *Pool) Agents() []agent.Agent {
	return p.registry.List()
}

// Task returns a snapshot of one task, if it is still tracked.
func (p *Pool) Task(id string) (taskqueue.Task, bool) {
	return p.queue.Get(id)
}

// Bus exposes the pool's event bus for subscribers. Handlers run
// synchronously on the publishing goroutine, which may hold the pool's
// internal lock; handlers must not call back into the pool directly
// (hand off to another goroutine instead).
func (p *Pool) Bus() *event.Bus {
	return p.bus
}

// Stats is a point-in-time summary of the pool.
type Stats struct {
	Total     int
	Idle      int
	Busy      int
	Error     int
	AvgHealth float64

	Pending   int
	Running   int
	Completed int
	Failed    int

	Uptime time.Duration
}

// Stats returns a point-in-time summary of agents and tasks.
func (p *Pool) Stats() Stats {
	counts := p.registry.Counts()
	qc := p.queue.Counts()

	p.mu.Lock()
	var uptime time.Duration
	if p.started {
		uptime = time.Since(p.startedAt)
	}
	p.mu.Unlock()

	return Stats{
		Total:     counts.Total,
		Idle:      counts.Idle,
		Busy:      counts.Busy,
		Error:     counts.Error,
		AvgHealth: p.registry.AvgHealth(),
		Pending:   qc.Pending,
		Running:   qc.Running,
		Completed: qc.Completed,
		Failed:    qc.Failed,
		Uptime:    uptime,
	}
}

// dispatchNext assigns the highest-priority pending task to the healthiest
// eligible idle agent. Returns true if a dispatch happened. The caller
// must hold p.mu.
func (p *Pool) dispatchNext() bool {
	for {
		a, ok := p.registry.FindIdle(p.cfg.Health.DispatchMinHealth)
		if !ok {
			return false
		}
		task, ok := p.queue.PopNext()
		if !ok {
			return false
		}

		if err := p.registry.Dispatch(a.ID, task.ID); err != nil {
			// Lost the agent between FindIdle and Dispatch; put the task
			// back and try another agent.
			if requeueErr := p.queue.Requeue(task.ID); requeueErr != nil {
				p.logger.WithTask(task.ID).Error("requeue after dispatch race failed",
					"error", requeueErr)
				return false
			}
			if errors.IsRetryable(err) {
				continue
			}
			return false
		}

		if err := p.queue.MarkRunning(task.ID, a.ID); err != nil {
			p.logger.WithTask(task.ID).Error("dispatch bookkeeping failed", "error", err)
			return false
		}

		p.bus.Publish(event.NewTaskDispatchedEvent(task.ID, a.ID))
		p.logger.WithTask(task.ID).Debug("task dispatched", "agent_id", a.ID)
		return true
	}
}

func (p *Pool) publishQueueDepth() {
	qc := p.queue.Counts()
	p.bus.Publish(event.NewQueueDepthChangedEvent(qc.Pending, qc.Running, qc.Completed, qc.Failed))
}
