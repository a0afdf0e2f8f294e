package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("min_agents must be at least 1").
		WithField("min_agents").
		WithValue(0)

	if !Is(err, ErrInvalidConfig) {
		t.Error("ConfigurationError should match ErrInvalidConfig")
	}
	if IsRetryable(err) {
		t.Error("ConfigurationError should not be retryable")
	}
	if got := GetSeverity(err); got != SeverityCritical {
		t.Errorf("Severity = %v, want %v", got, SeverityCritical)
	}

	msg := err.Error()
	want := "configuration error [field=min_agents, value=0]: min_agents must be at least 1"
	if msg != want {
		t.Errorf("Error() = %q, want %q", msg, want)
	}
}

func TestCapacityError(t *testing.T) {
	err := NewCapacityError(10)

	if !Is(err, ErrCapacityExceeded) {
		t.Error("CapacityError should match ErrCapacityExceeded")
	}
	if !IsRetryable(err) {
		t.Error("CapacityError should be retryable")
	}

	var capErr *CapacityError
	if !As(err, &capErr) {
		t.Fatal("As should extract *CapacityError")
	}
	if capErr.MaxAgents != 10 {
		t.Errorf("MaxAgents = %d, want 10", capErr.MaxAgents)
	}
}

func TestCapacityError_Wrapped(t *testing.T) {
	err := Wrap(NewCapacityError(5), "autoscaler add failed")

	if !Is(err, ErrCapacityExceeded) {
		t.Error("wrapped CapacityError should still match ErrCapacityExceeded")
	}
	if !IsRetryable(err) {
		t.Error("wrapped CapacityError should still be retryable")
	}
}

func TestDispatchError(t *testing.T) {
	err := NewDispatchError("agent-3", "t1")

	if !Is(err, ErrDispatchRace) {
		t.Error("DispatchError should match ErrDispatchRace")
	}
	if !IsRetryable(err) {
		t.Error("DispatchError should be retryable")
	}
	if got := GetSeverity(err); got != SeverityInfo {
		t.Errorf("Severity = %v, want %v", got, SeverityInfo)
	}

	msg := err.Error()
	want := "dispatch error [agent=agent-3, task=t1]: agent not idle"
	if msg != want {
		t.Errorf("Error() = %q, want %q", msg, want)
	}
}

func TestShutdownError(t *testing.T) {
	err := NewShutdownError(100*time.Millisecond, 2)

	if !Is(err, ErrShutdownTimeout) {
		t.Error("ShutdownError should match ErrShutdownTimeout")
	}
	if IsRetryable(err) {
		t.Error("ShutdownError should not be retryable")
	}

	msg := err.Error()
	want := "shutdown error: drain deadline exceeded after 100ms (2 tasks abandoned)"
	if msg != want {
		t.Errorf("Error() = %q, want %q", msg, want)
	}
}

func TestIsRetryable_BareSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dispatch race sentinel", ErrDispatchRace, true},
		{"capacity sentinel", ErrCapacityExceeded, true},
		{"wrapped dispatch race", fmt.Errorf("submit: %w", ErrDispatchRace), true},
		{"shutdown sentinel", ErrPoolShuttingDown, false},
		{"unknown error", New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetSeverity_Default(t *testing.T) {
	if got := GetSeverity(New("plain")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want %v", got, SeverityError)
	}
	if got := GetSeverity(nil); got != SeverityInfo {
		t.Errorf("GetSeverity(nil) = %v, want %v", got, SeverityInfo)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}

	base := New("base")
	wrapped := Wrapf(base, "op %s", "x")
	if !Is(wrapped, base) {
		t.Error("Wrapf should preserve the error chain")
	}
	if wrapped.Error() != "op x: base" {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), "op x: base")
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		s    Severity
		want string
	}{
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
