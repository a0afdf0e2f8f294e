package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "scaling.scale_up_threshold")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Pool config for invalid values and returns all
// validation errors found.
func (p *Pool) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, p.validateBounds()...)
	errors = append(errors, p.validateIntervals()...)
	errors = append(errors, p.validateScaling()...)
	errors = append(errors, p.validateHealth()...)
	errors = append(errors, p.validateQueue()...)
	errors = append(errors, p.validateLogging()...)

	return errors
}

// validateBounds validates the agent count bounds
func (p *Pool) validateBounds() []ValidationError {
	var errors []ValidationError

	if p.MinAgents < 1 {
		errors = append(errors, ValidationError{
			Field:   "min_agents",
			Value:   p.MinAgents,
			Message: "must be at least 1",
		})
	}

	if p.MaxAgents < p.MinAgents {
		errors = append(errors, ValidationError{
			Field:   "max_agents",
			Value:   p.MaxAgents,
			Message: fmt.Sprintf("must be at least min_agents (%d)", p.MinAgents),
		})
	}

	if p.MaxAgents > AgentCeiling {
		errors = append(errors, ValidationError{
			Field:   "max_agents",
			Value:   p.MaxAgents,
			Message: fmt.Sprintf("must not exceed the hard ceiling of %d", AgentCeiling),
		})
	}

	return errors
}

// validateIntervals validates monitor and shutdown timing
func (p *Pool) validateIntervals() []ValidationError {
	var errors []ValidationError

	if p.HealthCheckIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "health_check_interval_ms",
			Value:   p.HealthCheckIntervalMs,
			Message: "must be positive",
		})
	}

	if p.HeartbeatTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "heartbeat_timeout_ms",
			Value:   p.HeartbeatTimeoutMs,
			Message: "must be positive",
		})
	}

	if p.GracefulShutdownTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "graceful_shutdown_timeout_ms",
			Value:   p.GracefulShutdownTimeoutMs,
			Message: "must be positive",
		})
	}

	return errors
}

// validateScaling validates the ScalingConfig
func (p *Pool) validateScaling() []ValidationError {
	var errors []ValidationError

	if !IsValidScalingPolicy(p.Scaling.Policy) {
		errors = append(errors, ValidationError{
			Field:   "scaling.policy",
			Value:   p.Scaling.Policy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidScalingPolicies(), ", ")),
		})
	}

	if p.Scaling.ScaleUpThreshold <= 0 || p.Scaling.ScaleUpThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "scaling.scale_up_threshold",
			Value:   p.Scaling.ScaleUpThreshold,
			Message: "must be in (0, 1]",
		})
	}

	if p.Scaling.ScaleDownThreshold <= 0 || p.Scaling.ScaleDownThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "scaling.scale_down_threshold",
			Value:   p.Scaling.ScaleDownThreshold,
			Message: "must be in (0, 1]",
		})
	}

	// The scale-up trigger is on the busy ratio and the scale-down trigger
	// on the idle ratio; the two shares sum to 1, so the thresholds must
	// sum above 1 or both triggers can hold for the same snapshot.
	if p.Scaling.ScaleUpThreshold > 0 && p.Scaling.ScaleUpThreshold <= 1 &&
		p.Scaling.ScaleDownThreshold > 0 && p.Scaling.ScaleDownThreshold <= 1 &&
		p.Scaling.ScaleUpThreshold+p.Scaling.ScaleDownThreshold <= 1 {
		errors = append(errors, ValidationError{
			Field:   "scaling.scale_down_threshold",
			Value:   p.Scaling.ScaleDownThreshold,
			Message: "must exceed 1 - scale_up_threshold so the scale-up and scale-down triggers cannot overlap",
		})
	}

	if p.Scaling.QueueScaleUpDepth < 1 {
		errors = append(errors, ValidationError{
			Field:   "scaling.queue_scale_up_depth",
			Value:   p.Scaling.QueueScaleUpDepth,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateHealth validates the HealthConfig
func (p *Pool) validateHealth() []ValidationError {
	var errors []ValidationError

	points := []struct {
		field string
		value int
	}{
		{"health.dispatch_min_health", p.Health.DispatchMinHealth},
		{"health.error_floor", p.Health.ErrorFloor},
		{"health.failure_penalty", p.Health.FailurePenalty},
		{"health.heartbeat_penalty", p.Health.HeartbeatPenalty},
		{"health.heartbeat_recovery", p.Health.HeartbeatRecovery},
	}
	for _, pt := range points {
		if pt.value < 0 || pt.value > 100 {
			errors = append(errors, ValidationError{
				Field:   pt.field,
				Value:   pt.value,
				Message: "must be in [0, 100]",
			})
		}
	}

	return errors
}

// validateQueue validates the QueueConfig
func (p *Pool) validateQueue() []ValidationError {
	var errors []ValidationError

	if p.Queue.CompletedHistoryLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "queue.completed_history_limit",
			Value:   p.Queue.CompletedHistoryLimit,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (p *Pool) validateLogging() []ValidationError {
	var errors []ValidationError

	valid := false
	for _, level := range ValidLogLevels() {
		if strings.EqualFold(p.Logging.Level, level) {
			valid = true
			break
		}
	}
	if !valid {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   p.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
