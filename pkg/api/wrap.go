package api

import (
	"context"
	"sync"
	"time"
)

// RetryPolicy controls how a wrapped step is retried when it fails.
// MaxAttempts includes the first attempt. For example:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// InitialBackoff is the delay before the first retry; it grows by
// BackoffMultiplier per attempt (default 2.0 if <= 0) and is capped by
// MaxBackoff when that is > 0. A zero InitialBackoff retries immediately.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Retry wraps step so that a Failure outcome is retried according to
// policy before being reported to the engine. Success and Canceled
// outcomes pass through untouched, as does the final failure once the
// attempts are spent.
//
// The engine itself never retries; retry is a producer decision, and
// this wrapper is how a producer expresses it. The wrapped step is
// re-executed for every attempt and must therefore be re-executable.
func Retry(step Step, policy RetryPolicy) Step {
	return &retryStep{step: step, policy: policy}
}

type retryStep struct {
	step   Step
	policy RetryPolicy
}

func (s *retryStep) Execute(ctx context.Context, rc *RunContext, complete CompleteFunc) {
	maxAttempts := s.policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	multiplier := s.policy.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	attempt := 1
	backoff := s.policy.InitialBackoff

	var attempts func()

	// next folds one attempt's outcome. It returns true when another
	// attempt should start right away; a backoff-delayed retry is
	// scheduled on a timer instead.
	next := func(out Outcome) bool {
		if out.State() != StateFaulted || attempt >= maxAttempts {
			complete(out)
			return false
		}
		attempt++

		delay := backoff
		if s.policy.MaxBackoff > 0 && delay > s.policy.MaxBackoff {
			delay = s.policy.MaxBackoff
		}
		backoff = time.Duration(float64(backoff) * multiplier)

		if delay <= 0 {
			return true
		}
		timer := time.NewTimer(delay)
		go func() {
			defer timer.Stop()
			select {
			case <-ctx.Done():
				complete(outcomeFromContextErr(ctx.Err()))
			case <-timer.C:
				attempts()
			}
		}()
		return false
	}

	// attempts runs attempts back to back while they fail synchronously
	// with no backoff, so immediate retries use constant stack. An
	// attempt that completes on another goroutine re-enters the loop
	// from its callback.
	attempts = func() {
		for {
			var (
				mu       sync.Mutex
				returned bool
				again    bool
			)
			s.step.Execute(ctx, rc, func(out Outcome) {
				mu.Lock()
				if !returned {
					again = next(out)
					mu.Unlock()
					return
				}
				mu.Unlock()
				if next(out) {
					attempts()
				}
			})
			mu.Lock()
			returned = true
			retryNow := again
			mu.Unlock()
			if !retryNow {
				return
			}
		}
	}
	attempts()
}

// Recover wraps step so that a Failure outcome is handed to handler,
// whose Outcome replaces it. This is the compensating-step hook: a
// producer can turn a failure into a Success, a Canceled, a follow-up
// step or a whole compensation sequence. Non-failure outcomes pass
// through untouched.
func Recover(step Step, handler func(err error) Outcome) Step {
	return &recoverStep{step: step, handler: handler}
}

type recoverStep struct {
	step    Step
	handler func(err error) Outcome
}

func (s *recoverStep) Execute(ctx context.Context, rc *RunContext, complete CompleteFunc) {
	s.step.Execute(ctx, rc, func(out Outcome) {
		if out.State() == StateFaulted {
			complete(s.handler(out.Err()))
			return
		}
		complete(out)
	})
}
