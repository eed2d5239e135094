package coflow

import (
	"context"
	"iter"
	"time"

	"github.com/huoxudong125/coflow/pkg/api"
)

// Do returns a step that runs fn and succeeds with no value, or fails
// with fn's error.
func Do(fn func(ctx context.Context, rc *RunContext) error) Step {
	return api.Do(fn)
}

// Value returns a step that immediately succeeds with v.
func Value(v any) Step {
	return api.Value(v)
}

// Fail returns a step that immediately fails with err.
func Fail(err error) Step {
	return api.Fail(err)
}

// Cancel returns a step that immediately reports cancellation.
func Cancel() Step {
	return api.Cancel()
}

// Delay returns a step that completes successfully after d has elapsed,
// without holding the engine's goroutine.
func Delay(d time.Duration) Step {
	return api.Delay(d)
}

// Then returns a step that succeeds yielding next, so next executes
// before anything else is pulled from the outer sequence.
func Then(next Step) Step {
	return api.Then(next)
}

// Sub returns a step that succeeds yielding seq; the nested sequence
// runs to completion before the outer sequence continues.
func Sub(seq Sequence) Step {
	return api.Sub(seq)
}

// Await bridges an externally-awaitable operation into a step.
func Await(aw Awaitable) Step {
	return api.Await(aw)
}

// Go runs fn on a new goroutine and bridges its return into the step's
// completion.
func Go(fn func(ctx context.Context) (any, error)) Step {
	return api.Go(fn)
}

// Named wraps step so it reports name to observers and the run journal.
func Named(name string, step Step) Step {
	return api.Named(name, step)
}

// Steps returns a one-shot Sequence over the given steps in order.
func Steps(steps ...Step) Sequence {
	return api.Steps(steps...)
}

// Generate returns a Sequence fed lazily by a generator function.
// Example:
//
//	seq := coflow.Generate(func(yield func(coflow.Step) bool) {
//	    if !yield(fetch) {
//	        return
//	    }
//	    yield(store) // constructed after fetch has run
//	})
func Generate(fn func(yield func(Step) bool)) Sequence {
	return api.Generate(fn)
}

// FromSeq adapts a standard iterator over steps into a Sequence.
func FromSeq(seq iter.Seq[Step]) Sequence {
	return api.FromSeq(seq)
}

// WithRetry wraps step so Failure outcomes are retried per policy before
// being reported.
func WithRetry(step Step, policy RetryPolicy) Step {
	return api.Retry(step, policy)
}

// WithRecover wraps step so a Failure outcome is replaced by handler's
// Outcome, letting a producer compensate instead of faulting the run.
func WithRecover(step Step, handler func(err error) Outcome) Step {
	return api.Recover(step, handler)
}
