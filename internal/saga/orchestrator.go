// internal/saga/orchestrator.go
package saga

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Builder collects steps in order. Build freezes them into an Orchestrator.
type Builder[D any] struct {
	steps  []Step[D]
	logger *slog.Logger
}

// NewBuilder starts an empty step list.
func NewBuilder[D any]() *Builder[D] {
	return &Builder[D]{}
}

// AddStep appends a step and returns the builder for chaining.
func (b *Builder[D]) AddStep(step Step[D]) *Builder[D] {
	b.steps = append(b.steps, step)
	return b
}

// AddFunc appends a step built from functions.
func (b *Builder[D]) AddFunc(name string, execute, compensate func(ctx context.Context, data D) error) *Builder[D] {
	return b.AddStep(StepFunc[D]{StepName: name, ExecuteFunc: execute, CompensateFunc: compensate})
}

// WithLogger sets the logger of the built orchestrator.
func (b *Builder[D]) WithLogger(logger *slog.Logger) *Builder[D] {
	b.logger = logger
	return b
}

// Build returns an orchestrator holding a private copy of the steps added so far.
// Later AddStep calls on the builder do not affect it.
func (b *Builder[D]) Build() *Orchestrator[D] {
	steps := make([]Step[D], len(b.steps))
	copy(steps, b.steps)
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator[D]{
		steps:  steps,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.New,
	}
}

// Orchestrator executes an immutable, ordered list of steps.
// It has no internal concurrency and holds no per-execution state, so one instance may serve
// concurrent Execute calls.
type Orchestrator[D any] struct {
	steps  []Step[D]
	logger *slog.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

// StepNames lists the steps in execution order.
func (o *Orchestrator[D]) StepNames() []string {
	names := make([]string, len(o.steps))
	for i, s := range o.steps {
		names[i] = s.Name()
	}
	return names
}

// Execute runs the steps in order. On the first failure it stops, records the error and
// compensates every completed step in reverse order. The returned state is always terminal:
// COMPLETED or FAILED.
func (o *Orchestrator[D]) Execute(ctx context.Context, data D) *State[D] {
	state := &State[D]{
		SagaID:         o.newID(),
		Status:         StatusStarted,
		CompletedSteps: make([]string, 0, len(o.steps)),
		Data:           data,
		StartedAt:      o.now(),
	}
	log := o.logger.With("saga_id", state.SagaID.String())
	log.Info("Starting saga", "steps", len(o.steps))

	completed := make([]int, 0, len(o.steps))
	for i, step := range o.steps {
		state.CurrentStep = i
		state.Status = StatusProcessing
		log.Info("Executing saga step", "step", step.Name(), "position", fmt.Sprintf("%d/%d", i+1, len(o.steps)))

		if err := o.runExecute(ctx, step, data); err != nil {
			state.Err = err
			state.Error = err.Error()
			log.Error("Saga step failed", "step", step.Name(), "position", i, "error", err)
			o.compensate(ctx, log, state, completed)
			return state
		}
		completed = append(completed, i)
		state.CompletedSteps = append(state.CompletedSteps, step.Name())
	}

	state.Status = StatusCompleted
	state.CompletedAt = o.now()
	log.Info("Saga completed", "duration_ms", state.Duration().Milliseconds())
	return state
}

// compensate walks the completed steps newest first. Compensation runs detached from the
// caller's cancellation so an aborted request still gets its writes undone.
func (o *Orchestrator[D]) compensate(ctx context.Context, log *slog.Logger, state *State[D], completed []int) {
	state.Status = StatusCompensating
	log.Info("Starting compensation", "completed_steps", len(completed))

	cctx := context.WithoutCancel(ctx)
	for i := len(completed) - 1; i >= 0; i-- {
		step := o.steps[completed[i]]
		log.Info("Compensating saga step", "step", step.Name())
		if err := o.runCompensate(cctx, step, state.Data); err != nil {
			log.Error("Compensation failed", "step", step.Name(), "error", err)
			state.CompensationFailures = append(state.CompensationFailures, CompensationFailure{Step: step.Name(), Err: err})
		}
	}

	state.Status = StatusFailed
	state.CompletedAt = o.now()
	log.Info("Compensation finished, saga marked as FAILED", "compensation_failures", len(state.CompensationFailures))
}

// runExecute converts a panicking step into an ordinary failure.
func (o *Orchestrator[D]) runExecute(ctx context.Context, step Step[D], data D) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s panicked: %v", step.Name(), r)
		}
	}()
	return step.Execute(ctx, data)
}

func (o *Orchestrator[D]) runCompensate(ctx context.Context, step Step[D], data D) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compensation of %s panicked: %v", step.Name(), r)
		}
	}()
	return step.Compensate(ctx, data)
}
