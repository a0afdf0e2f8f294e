package pool

import (
	"time"

	"github.com/loomworks/agentpool/internal/agent"
	"github.com/loomworks/agentpool/internal/errors"
	"github.com/loomworks/agentpool/internal/event"
	"github.com/loomworks/agentpool/internal/scaling"
)

// runHealthMonitor periodically penalizes agents whose heartbeats are
// overdue. Runs until the pool shuts down.
func (p *Pool) runHealthMonitor() {
	defer p.loops.Done()

	ticker := time.NewTicker(p.cfg.HealthCheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.healthPass()
		}
	}
}

func (p *Pool) healthPass() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-p.cfg.HeartbeatTimeout())
	changes := p.registry.PenalizeStale(cutoff, p.cfg.Health.HeartbeatPenalty)

	for _, ch := range changes {
		p.bus.Publish(event.NewAgentHealthChangedEvent(
			ch.AgentID, ch.OldHealth, ch.NewHealth, ch.Status.String()))
		log := p.logger.WithAgent(ch.AgentID)
		if ch.Status == agent.StatusError {
			log.Warn("agent unresponsive, quarantined",
				"health", ch.NewHealth)
		} else {
			log.Debug("heartbeat overdue",
				"old_health", ch.OldHealth, "new_health", ch.NewHealth)
		}
	}
}

// runAutoscaler periodically evaluates the scaling policy against the pool
// state and moves the agent count by at most one per pass. Runs until the
// pool shuts down.
func (p *Pool) runAutoscaler() {
	defer p.loops.Done()

	ticker := time.NewTicker(p.cfg.HealthCheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.scalePass()
		}
	}
}

func (p *Pool) scalePass() {
	p.mu.Lock()
	defer p.mu.Unlock()

	counts := p.registry.Counts()
	snap := scaling.Snapshot{
		Total:   counts.Total,
		Idle:    counts.Idle,
		Busy:    counts.Busy,
		Error:   counts.Error,
		Pending: p.queue.PendingLen(),
	}

	decision := p.policy.Evaluate(snap)
	if decision.Action == scaling.ActionNone {
		return
	}

	switch decision.Action {
	case scaling.ActionScaleUp:
		a, err := p.registry.Add()
		if err != nil {
			// Another grower may have hit the cap first.
			if errors.Is(err, errors.ErrCapacityExceeded) {
				p.logger.Debug("scale up skipped, at capacity", "total", snap.Total)
				return
			}
			p.logger.Error("scale up failed", "error", err)
			return
		}
		total := p.registry.Counts().Total
		p.bus.Publish(event.NewScalingDecisionEvent(
			decision.Action.String(), decision.Delta, decision.Reason, total))
		p.bus.Publish(event.NewAgentAddedEvent(a.ID, total))
		p.logger.WithAgent(a.ID).Info("scaled up", "reason", decision.Reason, "total", total)
		p.dispatchNext()

	case scaling.ActionScaleDown:
		victim, ok := p.registry.FindRemovableIdle()
		if !ok {
			return
		}
		// The victim is idle and dispatch is serialized with this pass, so
		// removal is immediate and never waits out the graceful timeout.
		if err := p.registry.Remove(victim.ID, false, p.cfg.GracefulShutdownTimeout()); err != nil {
			// Minimum-floor race with an operator removal; try next pass.
			p.logger.Debug("scale down skipped", "agent_id", victim.ID, "error", err)
			return
		}
		total := p.registry.Counts().Total
		p.bus.Publish(event.NewScalingDecisionEvent(
			decision.Action.String(), decision.Delta, decision.Reason, total))
		p.bus.Publish(event.NewAgentRemovedEvent(victim.ID, false, decision.Reason, total))
		p.logger.WithAgent(victim.ID).Info("scaled down", "reason", decision.Reason, "total", total)
	}
}
