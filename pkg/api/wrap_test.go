package api

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyStep fails until the given attempt number, then succeeds.
type flakyStep struct {
	succeedOn int
	calls     int
}

func (s *flakyStep) Execute(ctx context.Context, rc *RunContext, complete CompleteFunc) {
	s.calls++
	if s.calls < s.succeedOn {
		complete(Failure(errors.New("transient")))
		return
	}
	complete(SuccessValue(s.calls))
}

// asyncFlakyStep is flakyStep with every completion delivered from a
// separate goroutine.
type asyncFlakyStep struct {
	succeedOn int
	calls     int
}

func (s *asyncFlakyStep) Execute(ctx context.Context, rc *RunContext, complete CompleteFunc) {
	s.calls++
	n := s.calls
	go func() {
		if n < s.succeedOn {
			complete(Failure(errors.New("transient")))
			return
		}
		complete(SuccessValue(n))
	}()
}

func TestRetryRetriesUntilSuccess(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStep{succeedOn: 3}
	step := Retry(inner, RetryPolicy{MaxAttempts: 5})

	out := executeStep(t, ctx, step)
	if out.State() != StateSucceeded {
		t.Fatalf("expected success, got %v (err=%v)", out.State(), out.Err())
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
	if out.Value() != 3 {
		t.Fatalf("expected value from the succeeding attempt, got %v", out.Value())
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStep{succeedOn: 10}
	step := Retry(inner, RetryPolicy{MaxAttempts: 3})

	out := executeStep(t, ctx, step)
	if out.State() != StateFaulted {
		t.Fatalf("expected faulted outcome, got %v", out.State())
	}
	if inner.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", inner.calls)
	}
}

func TestRetryZeroMaxAttemptsMeansOne(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStep{succeedOn: 2}
	step := Retry(inner, RetryPolicy{})

	out := executeStep(t, ctx, step)
	if out.State() != StateFaulted {
		t.Fatalf("expected faulted outcome, got %v", out.State())
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", inner.calls)
	}
}

func TestRetryPassesThroughNonFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStep{succeedOn: 1}
	step := Retry(inner, RetryPolicy{MaxAttempts: 3})

	out := executeStep(t, ctx, step)
	if out.State() != StateSucceeded || inner.calls != 1 {
		t.Fatalf("success should not be retried: state=%v calls=%d", out.State(), inner.calls)
	}

	cancelInner := StepFunc(func(ctx context.Context, rc *RunContext) Outcome {
		return Canceled()
	})
	out = executeStep(t, ctx, Retry(cancelInner, RetryPolicy{MaxAttempts: 3}))
	if out.State() != StateCanceled {
		t.Fatalf("cancellation should pass through, got %v", out.State())
	}
}

func TestRetryManyImmediateAttemptsUseConstantStack(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStep{succeedOn: 100_001}
	step := Retry(inner, RetryPolicy{MaxAttempts: 100_000})

	out := executeStep(t, ctx, step)
	if out.State() != StateFaulted {
		t.Fatalf("expected faulted outcome, got %v", out.State())
	}
	if inner.calls != 100_000 {
		t.Fatalf("expected 100000 attempts, got %d", inner.calls)
	}
}

func TestRetryImmediateRetriesAcrossAsyncCompletions(t *testing.T) {
	ctx := context.Background()
	inner := &asyncFlakyStep{succeedOn: 3}
	step := Retry(inner, RetryPolicy{MaxAttempts: 5})

	out := executeStep(t, ctx, step)
	if out.State() != StateSucceeded || out.Value() != 3 {
		t.Fatalf("expected success on attempt 3, got %v %v", out.State(), out.Value())
	}
}

func TestRetryBackoffHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	inner := &flakyStep{succeedOn: 10}
	step := Retry(inner, RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour})

	done := make(chan Outcome, 1)
	step.Execute(ctx, NewRunContext(), func(out Outcome) { done <- out })

	cancel()
	select {
	case out := <-done:
		if out.State() != StateCanceled {
			t.Fatalf("expected canceled outcome, got %v", out.State())
		}
	case <-time.After(time.Second):
		t.Fatalf("retry did not observe context cancellation")
	}
	if inner.calls != 1 {
		t.Fatalf("expected to be waiting after the first attempt, got %d calls", inner.calls)
	}
}

func TestRecoverReplacesFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	inner := Fail(boom)

	var seen error
	step := Recover(inner, func(err error) Outcome {
		seen = err
		return SuccessValue("compensated")
	})

	out := executeStep(t, ctx, step)
	if out.State() != StateSucceeded || out.Value() != "compensated" {
		t.Fatalf("expected compensated success, got %v %v", out.State(), out.Value())
	}
	if !errors.Is(seen, boom) {
		t.Fatalf("handler did not receive the original error")
	}
}

func TestRecoverCanSpliceCompensationSequence(t *testing.T) {
	ctx := context.Background()
	comp := Steps(Value("c1"), Value("c2"))
	step := Recover(Fail(errors.New("boom")), func(err error) Outcome {
		return SuccessSequence(comp)
	})

	out := executeStep(t, ctx, step)
	if out.State() != StateSucceeded || out.NextSequence() != comp {
		t.Fatalf("expected a follow-up sequence outcome")
	}
}

func TestRecoverPassesThroughNonFailures(t *testing.T) {
	ctx := context.Background()
	step := Recover(Value(7), func(err error) Outcome {
		t.Fatalf("handler must not run for successes")
		return Success()
	})

	out := executeStep(t, ctx, step)
	if out.State() != StateSucceeded || out.Value() != 7 {
		t.Fatalf("expected pass-through success, got %v %v", out.State(), out.Value())
	}
}
