package health

import (
	"context"
	"time"
)

// Status is the health state of a dependency.
type Status int

const (
	// StatusHealthy indicates the dependency is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the dependency works but with issues.
	StatusDegraded
	// StatusUnhealthy indicates the dependency is not usable.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is the outcome of one health check.
type Result struct {
	Status Status

	// Message provides context about the status.
	Message string

	// Details holds arbitrary metadata about the check.
	Details map[string]any

	// Duration is how long the check took.
	Duration time.Duration

	// Timestamp is when the check ran.
	Timestamp time.Time

	// Error is set when the check failed.
	Error error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{
		Status:    StatusUnhealthy,
		Message:   message,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is the interface for health checks.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check probes the dependency and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc adapts an ordinary function into a Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string { return f.name }

// Check runs the wrapped function.
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
