package api

import (
	"context"
	"errors"
)

var (
	// ErrRunCanceled is the error reported by Handle.Err, Handle.Result
	// and Handle.Wait when a run resolved as canceled. A canceled run
	// carries no failure of its own, but waiters still need a non-nil
	// error to tell cancellation apart from success.
	ErrRunCanceled = errors.New("coflow: run canceled")

	// ErrUnresolved is returned by Handle.Result while the run is still
	// in flight.
	ErrUnresolved = errors.New("coflow: run not yet resolved")
)

// Awaitable is the minimal contract for an externally-awaitable
// operation: something that is done at some point and then has a result
// or an error. Handles satisfy it, as does Promise, so foreign
// asynchronous primitives and whole sub-runs can be embedded in a
// sequence via Await.
type Awaitable interface {
	// Done returns a channel that is closed when the operation has
	// completed.
	Done() <-chan struct{}

	// Result returns the operation's value and error. It is only
	// meaningful once Done is closed.
	Result() (any, error)
}

// Handle is the externally observable eventual result of one run.
//
// A handle resolves exactly once, to Succeeded, Faulted or Canceled, and
// is safe for any number of concurrent observers. It satisfies Awaitable.
type Handle interface {
	Awaitable

	// Resolved reports whether the run has reached a terminal state.
	Resolved() bool

	// State returns StateRunning until the run resolves, then the
	// terminal state.
	State() State

	// Err returns the run's error: the fault for a Faulted run,
	// ErrRunCanceled for a Canceled run, nil otherwise.
	Err() error

	// Canceled reports whether the run resolved as canceled.
	Canceled() bool

	// Wait blocks until the run resolves or ctx is done. On resolution
	// it returns Result; if ctx expires first it returns ctx's error.
	Wait(ctx context.Context) (any, error)

	// OnResolved registers fn to run once the handle resolves. If the
	// handle is already resolved, fn runs immediately on the calling
	// goroutine; otherwise it runs on the goroutine that resolves the
	// run. Each registered fn runs exactly once.
	OnResolved(fn func(Handle))
}
