package pool

import (
	"context"

	"github.com/loomworks/agentpool/internal/errors"
	"github.com/loomworks/agentpool/internal/event"
)

// Shutdown drains the pool: new submissions are rejected, the background
// loops stop, idle agents are removed immediately, and busy agents get
// the configured graceful timeout to finish their current task before
// being force-removed. Pending tasks that never ran are failed with
// reason "pool shutdown". Shutdown is idempotent; concurrent and repeat
// calls return the first call's result.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return errors.ErrPoolNotStarted
	}
	p.mu.Unlock()

	p.shutdownOnce.Do(func() {
		p.shutdownErr = p.drain(ctx)
	})
	return p.shutdownErr
}

func (p *Pool) drain(ctx context.Context) error {
	p.mu.Lock()
	p.shuttingDown = true
	p.mu.Unlock()

	counts := p.registry.Counts()
	p.bus.Publish(event.NewShutdownStartedEvent(counts.Busy))
	p.logger.Info("pool shutting down",
		"busy", counts.Busy, "idle", counts.Idle, "pending", p.queue.PendingLen())

	close(p.stopCh)
	p.loops.Wait()

	// Idle and quarantined agents have nothing to drain.
	p.mu.Lock()
	for _, id := range p.registry.MarkIdleShuttingDown() {
		p.bus.Publish(event.NewAgentRemovedEvent(id, false, "pool shutdown",
			p.registry.Counts().Total))
	}
	p.mu.Unlock()

	// Busy agents get the graceful window to report completion. The pool
	// lock stays free here so agents can still call Complete.
	forced := p.registry.DrainBusy(ctx, p.cfg.GracefulShutdownTimeout())
	for _, id := range forced {
		p.bus.Publish(event.NewAgentRemovedEvent(id, true, "graceful shutdown timeout",
			p.registry.Counts().Total))
		p.logger.WithAgent(id).Warn("agent force-removed at shutdown")
	}

	// Sweep anything that slipped through, then settle the queue. Holding
	// the pool lock here fences out any in-flight Complete bookkeeping.
	p.mu.Lock()
	p.registry.RemoveAll()
	abandoned := p.queue.AbandonRunning("pool shutdown")
	drained := p.queue.DrainPending("pool shutdown")
	p.publishQueueDepth()
	p.mu.Unlock()

	graceful := len(forced) == 0
	p.bus.Publish(event.NewShutdownCompletedEvent(graceful, len(abandoned)))
	p.logger.Info("pool shutdown complete",
		"graceful", graceful,
		"abandoned_tasks", len(abandoned),
		"drained_tasks", len(drained),
	)

	if !graceful {
		return errors.NewShutdownError(p.cfg.GracefulShutdownTimeout(), len(abandoned))
	}
	return nil
}
