// Package scaling provides the policies the pool autoscaler uses to decide
// when to add or remove agents.
//
// A Policy inspects a Snapshot of the pool (agent counts by status plus
// queue backlog) and returns a Decision. Policies are deliberately
// incremental: each evaluation moves the pool by at most one agent, so
// the evaluation tick bounds how fast the pool can grow or shrink. The
// occupancy policy reacts to the busy and idle shares of working agents;
// the queue-depth policy reacts to backlog length.
package scaling
