package config

import (
	"strings"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("default config should validate, got: %v", ValidationErrors(errs))
	}
}

func TestValidate_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Pool)
		wantField string
	}{
		{
			name:      "min below 1",
			mutate:    func(p *Pool) { p.MinAgents = 0 },
			wantField: "min_agents",
		},
		{
			name:      "max below min",
			mutate:    func(p *Pool) { p.MinAgents = 3; p.MaxAgents = 2 },
			wantField: "max_agents",
		},
		{
			name:      "max above hard ceiling",
			mutate:    func(p *Pool) { p.MaxAgents = AgentCeiling + 1 },
			wantField: "max_agents",
		},
		{
			name:      "zero health check interval",
			mutate:    func(p *Pool) { p.HealthCheckIntervalMs = 0 },
			wantField: "health_check_interval_ms",
		},
		{
			name:      "negative heartbeat timeout",
			mutate:    func(p *Pool) { p.HeartbeatTimeoutMs = -1 },
			wantField: "heartbeat_timeout_ms",
		},
		{
			name:      "zero shutdown timeout",
			mutate:    func(p *Pool) { p.GracefulShutdownTimeoutMs = 0 },
			wantField: "graceful_shutdown_timeout_ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("expected validation errors, got none")
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantField, ValidationErrors(errs))
			}
		})
	}
}

func TestValidate_Scaling(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Pool)
		wantField string
	}{
		{
			name:      "unknown policy",
			mutate:    func(p *Pool) { p.Scaling.Policy = "load_average" },
			wantField: "scaling.policy",
		},
		{
			name:      "scale up threshold zero",
			mutate:    func(p *Pool) { p.Scaling.ScaleUpThreshold = 0 },
			wantField: "scaling.scale_up_threshold",
		},
		{
			name:      "scale up threshold above 1",
			mutate:    func(p *Pool) { p.Scaling.ScaleUpThreshold = 1.2 },
			wantField: "scaling.scale_up_threshold",
		},
		{
			name:      "scale down threshold negative",
			mutate:    func(p *Pool) { p.Scaling.ScaleDownThreshold = -0.1 },
			wantField: "scaling.scale_down_threshold",
		},
		{
			// Busy ratio 0.5 would satisfy both the 0.4 scale-up trigger
			// and the 0.3 idle-ratio scale-down trigger.
			name: "overlapping thresholds",
			mutate: func(p *Pool) {
				p.Scaling.ScaleUpThreshold = 0.4
				p.Scaling.ScaleDownThreshold = 0.3
			},
			wantField: "scaling.scale_down_threshold",
		},
		{
			name:      "queue depth below 1",
			mutate:    func(p *Pool) { p.Scaling.QueueScaleUpDepth = 0 },
			wantField: "scaling.queue_scale_up_depth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantField, ValidationErrors(errs))
			}
		})
	}
}

func TestValidate_NonOverlappingThresholdsAccepted(t *testing.T) {
	cfg := Default()
	cfg.Scaling.ScaleUpThreshold = 0.6
	cfg.Scaling.ScaleDownThreshold = 0.5

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate = %v, want no errors for thresholds summing above 1",
			ValidationErrors(errs))
	}
}

func TestValidate_HealthPointsRange(t *testing.T) {
	cfg := Default()
	cfg.Health.FailurePenalty = 150
	cfg.Health.ErrorFloor = -5

	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), ValidationErrors(errs))
	}
}

func TestValidate_Logging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"

	errs := cfg.Validate()
	if len(errs) != 1 || errs[0].Field != "logging.level" {
		t.Errorf("expected single logging.level error, got %v", ValidationErrors(errs))
	}

	// Case-insensitive levels are accepted.
	cfg.Logging.Level = "DEBUG"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("uppercase level should validate, got %v", ValidationErrors(errs))
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "min_agents", Value: 0, Message: "must be at least 1"},
	}
	if got := errs.Error(); got != "min_agents: must be at least 1 (got: 0)" {
		t.Errorf("single error format = %q", got)
	}

	errs = append(errs, ValidationError{Field: "max_agents", Value: 99, Message: "too large"})
	msg := errs.Error()
	if !strings.HasPrefix(msg, "2 validation errors:") {
		t.Errorf("multi error format = %q", msg)
	}
	if !strings.Contains(msg, "min_agents") || !strings.Contains(msg, "max_agents") {
		t.Errorf("multi error should list all fields: %q", msg)
	}

	if got := (ValidationErrors{}).Error(); got != "" {
		t.Errorf("empty ValidationErrors.Error() = %q, want empty", got)
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	cfg.HealthCheckIntervalMs = 250
	cfg.HeartbeatTimeoutMs = 1500
	cfg.GracefulShutdownTimeoutMs = 100

	if got := cfg.HealthCheckInterval().Milliseconds(); got != 250 {
		t.Errorf("HealthCheckInterval = %dms, want 250", got)
	}
	if got := cfg.HeartbeatTimeout().Milliseconds(); got != 1500 {
		t.Errorf("HeartbeatTimeout = %dms, want 1500", got)
	}
	if got := cfg.GracefulShutdownTimeout().Milliseconds(); got != 100 {
		t.Errorf("GracefulShutdownTimeout = %dms, want 100", got)
	}
}

func TestIsValidScalingPolicy(t *testing.T) {
	if !IsValidScalingPolicy("occupancy") || !IsValidScalingPolicy("queue_depth") {
		t.Error("known policies should be valid")
	}
	if IsValidScalingPolicy("") || IsValidScalingPolicy("cpu") {
		t.Error("unknown policies should be invalid")
	}
}
