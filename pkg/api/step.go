package api

import (
	"context"
	"errors"
	"time"
)

// CompleteFunc is the completion notification handed to a step. A step
// must invoke it exactly once with its terminal Outcome. Invoking it
// before Execute has been called is invalid; invoking it a second time is
// ignored by the engine.
type CompleteFunc func(Outcome)

// Step is one unit of asynchronous work in a sequence.
//
// Execute begins the work. It must not block the calling goroutine
// waiting for its own completion: if the work is synchronous it may call
// complete before returning (the engine tolerates reentrant completion),
// otherwise complete may be invoked later from any goroutine, including
// a timer or I/O goroutine.
//
// ctx is the run's context; steps that wait should honor its
// cancellation. rc is the run's shared RunContext.
//
// A Step is stateful once executing and must not be reused across two
// concurrent runs.
type Step interface {
	Execute(ctx context.Context, rc *RunContext, complete CompleteFunc)
}

// StepFunc adapts a synchronous function into a Step. The returned
// Outcome is reported as the step's completion before Execute returns.
type StepFunc func(ctx context.Context, rc *RunContext) Outcome

func (f StepFunc) Execute(ctx context.Context, rc *RunContext, complete CompleteFunc) {
	complete(f(ctx, rc))
}

// Do returns a step that runs fn and succeeds with no value, or fails
// with fn's error.
func Do(fn func(ctx context.Context, rc *RunContext) error) Step {
	return StepFunc(func(ctx context.Context, rc *RunContext) Outcome {
		if err := fn(ctx, rc); err != nil {
			return Failure(err)
		}
		return Success()
	})
}

// Value returns a step that immediately succeeds with v.
func Value(v any) Step {
	return StepFunc(func(context.Context, *RunContext) Outcome {
		return SuccessValue(v)
	})
}

// Fail returns a step that immediately fails with err.
func Fail(err error) Step {
	return StepFunc(func(context.Context, *RunContext) Outcome {
		return Failure(err)
	})
}

// Cancel returns a step that immediately reports cancellation, stopping
// the run without an error.
func Cancel() Step {
	return StepFunc(func(context.Context, *RunContext) Outcome {
		return Canceled()
	})
}

// Then returns a step that succeeds yielding next, so next executes
// before anything else is pulled from the outer sequence.
func Then(next Step) Step {
	return StepFunc(func(context.Context, *RunContext) Outcome {
		return SuccessStep(next)
	})
}

// Sub returns a step that succeeds yielding seq. The engine runs seq to
// completion before the outer sequence continues; a failure or
// cancellation inside seq stops the whole run.
func Sub(seq Sequence) Step {
	return StepFunc(func(context.Context, *RunContext) Outcome {
		return SuccessSequence(seq)
	})
}

// Delay returns a step that completes successfully after d has elapsed.
// The wait happens off the engine's goroutine; cancelling the run's
// context during the wait completes the step as canceled (or failed, for
// a deadline).
func Delay(d time.Duration) Step {
	return delayStep{d: d}
}

type delayStep struct {
	d time.Duration
}

func (s delayStep) Execute(ctx context.Context, rc *RunContext, complete CompleteFunc) {
	if s.d <= 0 {
		complete(Success())
		return
	}
	timer := time.NewTimer(s.d)
	go func() {
		defer timer.Stop()
		select {
		case <-ctx.Done():
			complete(outcomeFromContextErr(ctx.Err()))
		case <-timer.C:
			complete(Success())
		}
	}()
}

// outcomeFromContextErr maps a context error to the step outcome the
// engine expects: plain cancellation is a Canceled outcome, anything
// else (deadline exceeded) is a Failure.
func outcomeFromContextErr(err error) Outcome {
	if errors.Is(err, context.Canceled) {
		return Canceled()
	}
	return Failure(err)
}

// Named wraps step so it reports name to observers and the run journal.
// The builder uses this for every step it records; custom sequences can
// use it directly.
func Named(name string, step Step) Step {
	return &namedStep{name: name, step: step}
}

type namedStep struct {
	name string
	step Step
}

func (s *namedStep) Execute(ctx context.Context, rc *RunContext, complete CompleteFunc) {
	s.step.Execute(ctx, rc, complete)
}

func (s *namedStep) StepName() string {
	return s.name
}

// StepName returns the name attached to step via Named (or any step
// exposing a StepName method), or "".
func StepName(step Step) string {
	if n, ok := step.(interface{ StepName() string }); ok {
		return n.StepName()
	}
	return ""
}
