package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Await bridges an externally-awaitable operation into a Step.
//
// On Execute the bridge watches the operation from its own goroutine and
// reports the operation's outcome as the step's completion: a successful
// result becomes SuccessValue, an error becomes Failure, and a
// cancellation (context.Canceled or ErrRunCanceled) becomes Canceled.
// The bridge is the terminal reporter for the operation's error; it hands
// the error to the engine and nowhere else.
//
// Completion fires on whatever goroutine the operation completed on; the
// engine resumes safely from there. If the run's context ends while the
// operation is still pending, the step completes from the context error
// instead and the operation is left to its own devices.
func Await(aw Awaitable) Step {
	return awaitStep{aw: aw}
}

type awaitStep struct {
	aw Awaitable
}

func (s awaitStep) Execute(ctx context.Context, rc *RunContext, complete CompleteFunc) {
	go func() {
		select {
		case <-ctx.Done():
			complete(outcomeFromContextErr(ctx.Err()))
		case <-s.aw.Done():
			complete(outcomeFromResult(s.aw.Result()))
		}
	}()
}

// Go runs fn on a new goroutine and bridges its return value into the
// step's completion, for wrapping plain blocking calls:
//
//	api.Go(func(ctx context.Context) (any, error) {
//	    return client.Fetch(ctx, url)
//	})
//
// A panic inside fn is reported as a Failure.
func Go(fn func(ctx context.Context) (any, error)) Step {
	return goStep{fn: fn}
}

type goStep struct {
	fn func(ctx context.Context) (any, error)
}

func (s goStep) Execute(ctx context.Context, rc *RunContext, complete CompleteFunc) {
	go func() {
		defer func() {
			if p := recover(); p != nil {
				complete(Failure(fmt.Errorf("coflow: step panicked: %v", p)))
			}
		}()
		complete(outcomeFromResult(s.fn(ctx)))
	}()
}

func outcomeFromResult(v any, err error) Outcome {
	switch {
	case err == nil:
		return SuccessValue(v)
	case errors.Is(err, context.Canceled) || errors.Is(err, ErrRunCanceled):
		return Canceled()
	default:
		return Failure(err)
	}
}

// Promise is a one-shot Awaitable resolved by hand, for bridging
// callback-style APIs into a sequence:
//
//	p := api.NewPromise()
//	widget.OnConfirm(func(v any) { p.Resolve(v) })
//	seq := api.Steps(api.Await(p))
//
// Only the first of Resolve, Reject or Cancel takes effect; later calls
// are no-ops.
type Promise struct {
	mu       sync.Mutex
	done     chan struct{}
	resolved bool
	value    any
	err      error
}

// NewPromise returns an unresolved Promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolve completes the promise successfully with v.
func (p *Promise) Resolve(v any) {
	p.settle(v, nil)
}

// Reject completes the promise with err.
func (p *Promise) Reject(err error) {
	if err == nil {
		err = errors.New("coflow: promise rejected")
	}
	p.settle(nil, err)
}

// Cancel completes the promise as canceled. A step awaiting it reports
// a Canceled outcome.
func (p *Promise) Cancel() {
	p.settle(nil, context.Canceled)
}

func (p *Promise) settle(v any, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return
	}
	p.resolved = true
	p.value = v
	p.err = err
	close(p.done)
}

// Done returns a channel closed once the promise is settled.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Result returns the settled value and error. Before settlement it
// returns (nil, ErrUnresolved).
func (p *Promise) Result() (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.resolved {
		return nil, ErrUnresolved
	}
	return p.value, p.err
}
