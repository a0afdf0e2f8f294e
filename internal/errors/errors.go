// Package errors provides centralized error definitions and error handling
// utilities for the agent pool. It defines domain-specific errors, error
// constructors with context wrapping, and classification helpers.
//
// # Error Types
//
// Domain-specific errors represent routine, expected outcomes of pool
// operations rather than exceptional program states:
//   - ConfigurationError: invalid pool bounds at construction; fatal
//   - CapacityError: the registry is already at its maximum size
//   - DispatchError: a target agent was not idle at assignment time
//   - ShutdownError: a graceful drain exceeded its deadline
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewCapacityError(10)
//	err := errors.NewDispatchError("agent-3", "t1")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrCapacityExceeded) { ... }
//
//	var dispatchErr *errors.DispatchError
//	if errors.As(err, &dispatchErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo Severity = iota
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Registry-related sentinel errors
var (
	// ErrCapacityExceeded indicates the registry is already at max_agents.
	ErrCapacityExceeded = New("agent capacity exceeded")
	// ErrAgentNotFound indicates that an agent could not be found.
	ErrAgentNotFound = New("agent not found")
	// ErrBelowMinimum indicates a removal would drop the pool below min_agents.
	ErrBelowMinimum = New("removal would drop pool below minimum")
	// ErrDispatchRace indicates the target agent was not idle at dispatch time.
	// This is a benign race; the caller re-queues or retries.
	ErrDispatchRace = New("agent not idle at dispatch time")
)

// Queue-related sentinel errors
var (
	// ErrTaskNotFound indicates that a task could not be found.
	ErrTaskNotFound = New("task not found")
	// ErrInvalidTransition indicates an illegal task status transition.
	ErrInvalidTransition = New("invalid status transition")
)

// Lifecycle sentinel errors
var (
	// ErrPoolShuttingDown indicates a submission arrived after shutdown began.
	ErrPoolShuttingDown = New("pool shutting down")
	// ErrPoolNotStarted indicates an operation that requires Start was called early.
	ErrPoolNotStarted = New("pool not started")
	// ErrPoolAlreadyStarted indicates Start was called twice.
	ErrPoolAlreadyStarted = New("pool already started")
	// ErrShutdownTimeout indicates the graceful drain exceeded its deadline.
	ErrShutdownTimeout = New("graceful shutdown timed out")
	// ErrInvalidConfig indicates pool configuration validation failed.
	ErrInvalidConfig = New("invalid pool configuration")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// PoolError is the base interface for all agent pool errors.
// It extends the standard error interface with classification methods.
type PoolError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ConfigurationError represents invalid pool bounds at construction.
// It is fatal: the pool fails fast and never recovers automatically.
//
// Example:
//
//	err := errors.NewConfigurationError("min_agents must be at least 1")
//	err = err.WithField("min_agents").WithValue(0)
type ConfigurationError struct {
	baseError
	Field string
	Value any
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{
		baseError: baseError{
			message:   message,
			cause:     ErrInvalidConfig,
			severity:  SeverityCritical,
			retryable: false,
		},
	}
}

// WithField adds the offending config field to the error context.
func (e *ConfigurationError) WithField(field string) *ConfigurationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ConfigurationError) WithValue(value any) *ConfigurationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ConfigurationError) WithCause(cause error) *ConfigurationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ConfigurationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "configuration error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("configuration error [%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ConfigurationError) Is(target error) bool {
	if _, ok := target.(*ConfigurationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidConfig) {
		return true
	}
	return e.baseError.Is(target)
}

// CapacityError represents an addAgent call against a full registry.
// It is recoverable: the task stays queued and a later tick may succeed.
//
// Example:
//
//	err := errors.NewCapacityError(10)
//	fmt.Println(err) // "capacity error: registry full at 10 agents"
type CapacityError struct {
	baseError
	MaxAgents int
}

// NewCapacityError creates a new CapacityError.
func NewCapacityError(maxAgents int) *CapacityError {
	return &CapacityError{
		baseError: baseError{
			message:   fmt.Sprintf("registry full at %d agents", maxAgents),
			cause:     ErrCapacityExceeded,
			severity:  SeverityWarning,
			retryable: true,
		},
		MaxAgents: maxAgents,
	}
}

// Error returns the formatted error message.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity error: %s", e.message)
}

// Is checks if this error matches the target.
func (e *CapacityError) Is(target error) bool {
	if _, ok := target.(*CapacityError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DispatchError represents a dispatch attempt against an agent that was not
// idle at assignment time. This is a benign race, not a fault; the caller
// re-queues or retries.
type DispatchError struct {
	baseError
	AgentID string
	TaskID  string
}

// NewDispatchError creates a new DispatchError.
func NewDispatchError(agentID, taskID string) *DispatchError {
	return &DispatchError{
		baseError: baseError{
			message:   "agent not idle",
			cause:     ErrDispatchRace,
			severity:  SeverityInfo,
			retryable: true,
		},
		AgentID: agentID,
		TaskID:  taskID,
	}
}

// Error returns the formatted error message.
func (e *DispatchError) Error() string {
	var parts []string
	if e.AgentID != "" {
		parts = append(parts, fmt.Sprintf("agent=%s", e.AgentID))
	}
	if e.TaskID != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.TaskID))
	}

	prefix := "dispatch error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("dispatch error [%s]", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *DispatchError) Is(target error) bool {
	if _, ok := target.(*DispatchError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ShutdownError represents a graceful drain that exceeded its deadline.
// It is not fatal to the process: remaining agents were force-removed and
// any task left running was marked failed.
type ShutdownError struct {
	baseError
	Timeout   time.Duration
	Abandoned int // Tasks still running when the deadline fired
}

// NewShutdownError creates a new ShutdownError.
func NewShutdownError(timeout time.Duration, abandoned int) *ShutdownError {
	return &ShutdownError{
		baseError: baseError{
			message:   fmt.Sprintf("drain deadline exceeded after %s", timeout),
			cause:     ErrShutdownTimeout,
			severity:  SeverityWarning,
			retryable: false,
		},
		Timeout:   timeout,
		Abandoned: abandoned,
	}
}

// Error returns the formatted error message.
func (e *ShutdownError) Error() string {
	if e.Abandoned > 0 {
		return fmt.Sprintf("shutdown error: %s (%d tasks abandoned)", e.message, e.Abandoned)
	}
	return fmt.Sprintf("shutdown error: %s", e.message)
}

// Is checks if this error matches the target.
func (e *ShutdownError) Is(target error) bool {
	if _, ok := target.(*ShutdownError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. Capacity and dispatch races qualify; bad
// configuration never does.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var poolErr PoolError
	if As(err, &poolErr) {
		return poolErr.IsRetryable()
	}

	// Bare sentinels that callers may return without wrapping.
	if Is(err, ErrDispatchRace) || Is(err, ErrCapacityExceeded) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PoolError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityInfo
	}

	var poolErr PoolError
	if As(err, &poolErr) {
		return poolErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with an additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
