// Package pool is the public face of the agent pool: it owns the agent
// registry, the task queue, the health monitor, the autoscaler, and the
// shutdown coordinator, and exposes the operations callers use to submit
// work and report outcomes.
//
// A Pool is created from a validated configuration, started once, and shut
// down once. Between Start and Shutdown it dispatches submitted tasks to
// healthy idle agents, queues the overflow by priority, penalizes agents
// that stop heartbeating, and grows or shrinks the agent set one agent at
// a time according to the configured scaling policy.
package pool
