package coflow

import (
	"context"
	"fmt"
	"time"

	"github.com/huoxudong125/coflow/pkg/api"
)

// SequenceBuilder provides a fluent API for assembling sequences with
// named steps:
//
//	seq := coflow.NewSequence("checkout").
//	    Step("reserve", reserveStock).
//	    Delay("settle", 50*time.Millisecond).
//	    Await("payment", paymentPromise).
//	    Build()
//
//	handle := coflow.StartRun(ctx, sequencer, seq, nil)
//
// The names flow into observer callbacks and the run journal.
type SequenceBuilder struct {
	name  string
	steps []Step
}

// NewSequence creates a new sequence builder with the given name.
func NewSequence(name string) *SequenceBuilder {
	return &SequenceBuilder{name: name}
}

// Name returns the sequence name.
func (b *SequenceBuilder) Name() string {
	return b.name
}

// Len returns the number of steps recorded so far.
func (b *SequenceBuilder) Len() int {
	return len(b.steps)
}

// Step appends a synchronous function step.
func (b *SequenceBuilder) Step(name string, fn StepFunc) *SequenceBuilder {
	if fn == nil {
		panic(fmt.Sprintf("coflow: step %q has nil function", name))
	}
	return b.Add(name, fn)
}

// Add appends an arbitrary step under the given name.
func (b *SequenceBuilder) Add(name string, step Step) *SequenceBuilder {
	if name == "" {
		panic("coflow: step name must not be empty")
	}
	if step == nil {
		panic(fmt.Sprintf("coflow: step %q is nil", name))
	}
	b.steps = append(b.steps, api.Named(name, step))
	return b
}

// Do appends a side-effect step that succeeds with no value or fails
// with fn's error.
func (b *SequenceBuilder) Do(name string, fn func(ctx context.Context, rc *RunContext) error) *SequenceBuilder {
	if fn == nil {
		panic(fmt.Sprintf("coflow: step %q has nil function", name))
	}
	return b.Add(name, api.Do(fn))
}

// Delay appends a timer step.
func (b *SequenceBuilder) Delay(name string, d time.Duration) *SequenceBuilder {
	return b.Add(name, api.Delay(d))
}

// Await appends a step bridging an externally-awaitable operation.
func (b *SequenceBuilder) Await(name string, aw Awaitable) *SequenceBuilder {
	if aw == nil {
		panic(fmt.Sprintf("coflow: step %q awaits nil operation", name))
	}
	return b.Add(name, api.Await(aw))
}

// Go appends a step that runs fn on its own goroutine and bridges its
// return value.
func (b *SequenceBuilder) Go(name string, fn func(ctx context.Context) (any, error)) *SequenceBuilder {
	if fn == nil {
		panic(fmt.Sprintf("coflow: step %q has nil function", name))
	}
	return b.Add(name, api.Go(fn))
}

// Sub appends a step that splices in a nested sequence. The nested
// sequence runs to completion before the next step of this builder.
func (b *SequenceBuilder) Sub(name string, seq Sequence) *SequenceBuilder {
	if seq == nil {
		panic(fmt.Sprintf("coflow: step %q has nil sequence", name))
	}
	return b.Add(name, api.Sub(seq))
}

// StepWithRetry appends a function step wrapped in the given retry policy.
func (b *SequenceBuilder) StepWithRetry(name string, fn StepFunc, retry RetryPolicy) *SequenceBuilder {
	if fn == nil {
		panic(fmt.Sprintf("coflow: step %q has nil function", name))
	}
	return b.Add(name, api.Retry(fn, retry))
}

// Build materializes the recorded steps into a one-shot Sequence.
// Each call returns an independent sequence, but the step values are
// shared: steps that carry execution state must not be run concurrently.
func (b *SequenceBuilder) Build() Sequence {
	steps := make([]Step, len(b.steps))
	copy(steps, b.steps)
	return api.Steps(steps...)
}
