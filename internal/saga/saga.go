// Package saga runs an ordered list of steps against a shared context value and undoes the
// completed ones, newest first, when a step fails.
package saga

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one saga execution.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusProcessing   Status = "PROCESSING"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// Step is one unit of a saga. Execute moves forward; Compensate undoes a successful Execute.
// Both receive the same mutable context, so Compensate can read what Execute recorded.
type Step[D any] interface {
	Name() string
	Execute(ctx context.Context, data D) error
	Compensate(ctx context.Context, data D) error
}

// StepFunc adapts a pair of functions to Step. A nil CompensateFunc is a no-op.
type StepFunc[D any] struct {
	StepName       string
	ExecuteFunc    func(ctx context.Context, data D) error
	CompensateFunc func(ctx context.Context, data D) error
}

func (s StepFunc[D]) Name() string { return s.StepName }

func (s StepFunc[D]) Execute(ctx context.Context, data D) error {
	return s.ExecuteFunc(ctx, data)
}

func (s StepFunc[D]) Compensate(ctx context.Context, data D) error {
	if s.CompensateFunc == nil {
		return nil
	}
	return s.CompensateFunc(ctx, data)
}

// NoCompensation is the compensator of read-only steps.
func NoCompensation[D any](context.Context, D) error { return nil }

// CompensationFailure records a compensator that returned an error.
type CompensationFailure struct {
	Step string
	Err  error
}

// State is the outcome of one Execute call.
type State[D any] struct {
	SagaID         uuid.UUID
	Status         Status
	CurrentStep    int
	CompletedSteps []string
	Data           D

	// Err is the first execute failure; Error is its message verbatim.
	Err   error
	Error string

	// CompensationFailures are logged and swallowed; they never change Status.
	CompensationFailures []CompensationFailure

	StartedAt   time.Time
	CompletedAt time.Time
}

// Succeeded reports whether every step completed.
func (s *State[D]) Succeeded() bool {
	return s.Status == StatusCompleted
}

// Duration is the wall time between start and the terminal status.
func (s *State[D]) Duration() time.Duration {
	if s.CompletedAt.IsZero() {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}
