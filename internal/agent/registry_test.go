package agent

import (
	"testing"
	"time"

	"github.com/loomworks/agentpool/internal/errors"
)

func newTestRegistry(min, max int) *Registry {
	return NewRegistry(min, max, DefaultTuning())
}

func mustAdd(t *testing.T, r *Registry) Agent {
	t.Helper()
	a, err := r.Add()
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return a
}

func TestAdd_NewAgentIsIdleAtFullHealth(t *testing.T) {
	r := newTestRegistry(1, 5)

	a := mustAdd(t, r)
	if a.Status != StatusIdle {
		t.Errorf("Status = %v, want %v", a.Status, StatusIdle)
	}
	if a.Health != MaxHealth {
		t.Errorf("Health = %d, want %d", a.Health, MaxHealth)
	}
	if a.ID == "" {
		t.Error("ID should be assigned at creation")
	}
	if a.CreatedAt.IsZero() || a.LastHeartbeat.IsZero() {
		t.Error("CreatedAt and LastHeartbeat should be stamped")
	}
}

func TestAdd_CapacityExceededAtMax(t *testing.T) {
	r := newTestRegistry(1, 5)

	for i := 0; i < 5; i++ {
		mustAdd(t, r)
	}

	_, err := r.Add()
	if !errors.Is(err, errors.ErrCapacityExceeded) {
		t.Errorf("Add at capacity = %v, want ErrCapacityExceeded", err)
	}
	if c := r.Counts(); c.Total != 5 {
		t.Errorf("Total = %d, want 5", c.Total)
	}
}

func TestDispatch_MarksBusyWithTask(t *testing.T) {
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)

	if err := r.Dispatch(a.ID, "t1"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	got, _ := r.Get(a.ID)
	if got.Status != StatusBusy {
		t.Errorf("Status = %v, want %v", got.Status, StatusBusy)
	}
	if got.CurrentTaskID != "t1" {
		t.Errorf("CurrentTaskID = %q, want %q", got.CurrentTaskID, "t1")
	}
	if got.TaskStartedAt.IsZero() {
		t.Error("TaskStartedAt should be stamped")
	}
}

func TestDispatch_RaceOnBusyAgent(t *testing.T) {
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)

	if err := r.Dispatch(a.ID, "t1"); err != nil {
		t.Fatalf("first Dispatch failed: %v", err)
	}

	err := r.Dispatch(a.ID, "t2")
	if !errors.Is(err, errors.ErrDispatchRace) {
		t.Errorf("Dispatch on busy agent = %v, want ErrDispatchRace", err)
	}
	if !errors.IsRetryable(err) {
		t.Error("dispatch race should be retryable")
	}
}

func TestComplete_SuccessReturnsToIdle(t *testing.T) {
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)
	if err := r.Dispatch(a.ID, "t1"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	res, err := r.Complete(a.ID, true)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.TaskID != "t1" {
		t.Errorf("TaskID = %q, want %q", res.TaskID, "t1")
	}
	if res.Status != StatusIdle {
		t.Errorf("Status = %v, want %v", res.Status, StatusIdle)
	}

	got, _ := r.Get(a.ID)
	if got.CompletedCount != 1 {
		t.Errorf("CompletedCount = %d, want 1", got.CompletedCount)
	}
	if got.CurrentTaskID != "" {
		t.Errorf("CurrentTaskID = %q, want empty", got.CurrentTaskID)
	}
	if got.Health != MaxHealth {
		t.Errorf("Health = %d, want %d (success applies no penalty)", got.Health, MaxHealth)
	}
}

func TestComplete_FailureDegradesToErrorAtFloor(t *testing.T) {
	// Scenario: repeated failures walk health down by the failure penalty
	// until it crosses the error floor, at which point the agent becomes
	// Error rather than Idle.
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)

	healths := []int{80, 60, 40, 20}
	for i, wantHealth := range healths {
		if err := r.Dispatch(a.ID, "t"); err != nil {
			t.Fatalf("Dispatch %d failed: %v", i, err)
		}
		res, err := r.Complete(a.ID, false)
		if err != nil {
			t.Fatalf("Complete %d failed: %v", i, err)
		}
		if res.Health != wantHealth {
			t.Errorf("failure %d: Health = %d, want %d", i+1, res.Health, wantHealth)
		}

		if wantHealth > DefaultTuning().ErrorFloor {
			if res.Status != StatusIdle {
				t.Errorf("failure %d: Status = %v, want %v", i+1, res.Status, StatusIdle)
			}
		} else {
			if res.Status != StatusError {
				t.Errorf("failure %d: Status = %v, want %v", i+1, res.Status, StatusError)
			}
			break // Error agents are no longer dispatchable.
		}
	}

	got, _ := r.Get(a.ID)
	if got.Status != StatusError {
		t.Errorf("final Status = %v, want %v", got.Status, StatusError)
	}
	if got.ErrorCount == 0 {
		t.Error("ErrorCount should have increased")
	}
}

func TestComplete_ReportsPriorHealthAcrossClamp(t *testing.T) {
	tuning := DefaultTuning()
	tuning.FailurePenalty = 60
	r := NewRegistry(1, 5, tuning)
	a := mustAdd(t, r)

	if err := r.Dispatch(a.ID, "t1"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	res, err := r.Complete(a.ID, false)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.PriorHealth != 100 || res.Health != 40 {
		t.Errorf("health transition = %d -> %d, want 100 -> 40", res.PriorHealth, res.Health)
	}

	// The second penalty clamps at zero; the prior value is the real one,
	// not the post-clamp value plus the penalty.
	if err := r.Dispatch(a.ID, "t2"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	res, err = r.Complete(a.ID, false)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.PriorHealth != 40 || res.Health != 0 {
		t.Errorf("health transition = %d -> %d, want 40 -> 0", res.PriorHealth, res.Health)
	}
	if res.Status != StatusError {
		t.Errorf("Status = %v, want %v", res.Status, StatusError)
	}
}

func TestComplete_WithoutTaskIsInvalid(t *testing.T) {
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)

	_, err := r.Complete(a.ID, true)
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("Complete on idle agent = %v, want ErrInvalidTransition", err)
	}

	_, err = r.Complete("no-such-agent", true)
	if !errors.Is(err, errors.ErrAgentNotFound) {
		t.Errorf("Complete on unknown agent = %v, want ErrAgentNotFound", err)
	}
}

func TestRemove_IdleImmediate(t *testing.T) {
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)
	mustAdd(t, r)

	if err := r.Remove(a.ID, false, time.Second); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := r.Get(a.ID); ok {
		t.Error("agent should be removed")
	}
}

func TestRemove_RefusesBelowMinimum(t *testing.T) {
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)

	err := r.Remove(a.ID, false, time.Second)
	if !errors.Is(err, errors.ErrBelowMinimum) {
		t.Errorf("Remove below min = %v, want ErrBelowMinimum", err)
	}
	if _, ok := r.Get(a.ID); !ok {
		t.Error("agent should still exist after refused removal")
	}

	// Force overrides the minimum.
	if err := r.Remove(a.ID, true, time.Second); err != nil {
		t.Fatalf("forced Remove failed: %v", err)
	}
	if c := r.Counts(); c.Total != 0 {
		t.Errorf("Total = %d, want 0", c.Total)
	}
}

func TestRemove_GracefulWaitsForCompletion(t *testing.T) {
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)
	mustAdd(t, r)
	if err := r.Dispatch(a.ID, "t1"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	removeDone := make(chan error, 1)
	go func() {
		removeDone <- r.Remove(a.ID, false, time.Second)
	}()

	// The remover marks the agent ShuttingDown before blocking.
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		got, ok := r.Get(a.ID)
		if ok && got.Status == StatusShuttingDown {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("agent never entered ShuttingDown")
		}
		time.Sleep(5 * time.Millisecond)
	}

	res, err := r.Complete(a.ID, true)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !res.Removed {
		t.Error("completion on a ShuttingDown agent should remove it")
	}

	select {
	case err := <-removeDone:
		if err != nil {
			t.Errorf("Remove returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Remove did not return after task completion")
	}

	if _, ok := r.Get(a.ID); ok {
		t.Error("agent should be gone")
	}
}

func TestRemove_GracefulTimeoutForcesRemoval(t *testing.T) {
	// Scenario: the in-flight task never completes, so removal must fall
	// back to force within roughly the graceful timeout.
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)
	mustAdd(t, r)
	if err := r.Dispatch(a.ID, "t1"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	start := time.Now()
	if err := r.Remove(a.ID, false, 100*time.Millisecond); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 100*time.Millisecond {
		t.Errorf("Remove returned in %v, should wait at least the graceful timeout", elapsed)
	}
	if elapsed > 400*time.Millisecond {
		t.Errorf("Remove took %v, should be bounded near the graceful timeout", elapsed)
	}
	if _, ok := r.Get(a.ID); ok {
		t.Error("agent should be force-removed after the timeout")
	}
}

func TestRecordHeartbeat_RecoversHealthCapped(t *testing.T) {
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)

	// Walk health down with one failure first.
	if err := r.Dispatch(a.ID, "t1"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if _, err := r.Complete(a.ID, false); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	change, err := r.RecordHeartbeat(a.ID)
	if err != nil {
		t.Fatalf("RecordHeartbeat failed: %v", err)
	}
	if change.NewHealth != 90 {
		t.Errorf("NewHealth = %d, want 90", change.NewHealth)
	}

	// Recovery is capped at MaxHealth.
	if _, err := r.RecordHeartbeat(a.ID); err != nil {
		t.Fatalf("RecordHeartbeat failed: %v", err)
	}
	change, err = r.RecordHeartbeat(a.ID)
	if err != nil {
		t.Fatalf("RecordHeartbeat failed: %v", err)
	}
	if change.NewHealth != MaxHealth {
		t.Errorf("NewHealth = %d, want cap at %d", change.NewHealth, MaxHealth)
	}

	got, _ := r.Get(a.ID)
	if got.LastHeartbeat.Before(a.LastHeartbeat) {
		t.Error("LastHeartbeat should move forward")
	}
}

func TestPenalizeStale_DecaysAndCollapsesToError(t *testing.T) {
	r := newTestRegistry(1, 5)
	a := mustAdd(t, r)
	mustAdd(t, r)

	// Penalize everything heartbeated before a future cutoff, five times;
	// health reaches zero and both agents collapse to Error.
	var last []HealthChange
	for i := 0; i < 5; i++ {
		last = r.PenalizeStale(time.Now().Add(time.Second), 20)
	}
	if len(last) != 2 {
		t.Fatalf("changes = %d, want 2", len(last))
	}
	for _, ch := range last {
		if ch.NewHealth != MinHealth {
			t.Errorf("agent %s: NewHealth = %d, want %d", ch.AgentID, ch.NewHealth, MinHealth)
		}
		if ch.Status != StatusError {
			t.Errorf("agent %s: Status = %v, want %v", ch.AgentID, ch.Status, StatusError)
		}
	}

	got, _ := r.Get(a.ID)
	if got.Status != StatusError {
		t.Errorf("Status = %v, want %v (health 0 is never Idle)", got.Status, StatusError)
	}
}

func TestPenalizeStale_SkipsFreshHeartbeats(t *testing.T) {
	r := newTestRegistry(1, 5)
	mustAdd(t, r)

	changes := r.PenalizeStale(time.Now().Add(-time.Minute), 20)
	if len(changes) != 0 {
		t.Errorf("fresh agents penalized: %v", changes)
	}
}

func TestFindIdle_PrefersHealthiestAboveFloor(t *testing.T) {
	r := newTestRegistry(1, 5)
	weak := mustAdd(t, r)
	strong := mustAdd(t, r)

	// Degrade one agent to health 60.
	for i := 0; i < 2; i++ {
		if err := r.Dispatch(weak.ID, "t"); err != nil {
			t.Fatalf("Dispatch failed: %v", err)
		}
		if _, err := r.Complete(weak.ID, false); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
	}

	got, ok := r.FindIdle(50)
	if !ok {
		t.Fatal("expected an eligible idle agent")
	}
	if got.ID != strong.ID {
		t.Errorf("FindIdle = %s (health %d), want healthiest %s", got.ID, got.Health, strong.ID)
	}

	// No agent clears an impossible floor.
	if _, ok := r.FindIdle(100); ok {
		t.Error("no agent should clear a floor of 100")
	}
}

func TestCounts_SumMatchesTotal(t *testing.T) {
	r := newTestRegistry(1, 5)
	busy := mustAdd(t, r)
	mustAdd(t, r)
	mustAdd(t, r)

	if err := r.Dispatch(busy.ID, "t1"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	c := r.Counts()
	if c.Total != 3 {
		t.Errorf("Total = %d, want 3", c.Total)
	}
	if sum := c.Idle + c.Busy + c.Error + c.ShuttingDown; sum != c.Total {
		t.Errorf("status counts sum to %d, want %d", sum, c.Total)
	}
	if c.Busy != 1 || c.Idle != 2 {
		t.Errorf("Counts = %+v, want 1 busy / 2 idle", c)
	}
}

func TestAvgHealth(t *testing.T) {
	r := newTestRegistry(1, 5)
	if got := r.AvgHealth(); got != 0 {
		t.Errorf("AvgHealth on empty registry = %v, want 0", got)
	}

	a := mustAdd(t, r)
	mustAdd(t, r)
	if err := r.Dispatch(a.ID, "t"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if _, err := r.Complete(a.ID, false); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if got := r.AvgHealth(); got != 90 {
		t.Errorf("AvgHealth = %v, want 90", got)
	}
}

func TestMarkIdleShuttingDownAndRemoveAll(t *testing.T) {
	r := newTestRegistry(1, 5)
	busy := mustAdd(t, r)
	mustAdd(t, r)
	mustAdd(t, r)
	if err := r.Dispatch(busy.ID, "t1"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	removed := r.MarkIdleShuttingDown()
	if len(removed) != 2 {
		t.Errorf("removed %d idle agents, want 2", len(removed))
	}
	if c := r.Counts(); c.Total != 1 || c.Busy != 1 {
		t.Errorf("Counts = %+v, want only the busy agent", c)
	}

	rest := r.RemoveAll()
	if len(rest) != 1 {
		t.Errorf("RemoveAll removed %d, want 1", len(rest))
	}
	if c := r.Counts(); c.Total != 0 {
		t.Errorf("Total = %d, want 0", c.Total)
	}
}

func TestStatusHelpers(t *testing.T) {
	if !StatusIdle.IsDispatchable() {
		t.Error("idle should be dispatchable")
	}
	for _, s := range []Status{StatusBusy, StatusError, StatusShuttingDown} {
		if s.IsDispatchable() {
			t.Errorf("%v should not be dispatchable", s)
		}
	}
	if StatusBusy.String() != "busy" {
		t.Errorf("String() = %q, want %q", StatusBusy.String(), "busy")
	}
}
