package coflow

import "time"

// RetryBuilder accumulates a RetryPolicy for WithRetry and
// SequenceBuilder.StepWithRetry. The zero backoff it starts from means
// back-to-back attempts; chain a backoff method to space them out.
type RetryBuilder struct {
	policy RetryPolicy
}

// Retry starts a policy allowing up to maxAttempts total attempts with
// no delay between them. Values below one are raised to a single
// attempt, which disables retrying altogether.
func Retry(maxAttempts int) RetryBuilder {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryBuilder{policy: RetryPolicy{MaxAttempts: maxAttempts}}
}

func (r RetryBuilder) with(f func(p *RetryPolicy)) RetryBuilder {
	f(&r.policy)
	return r
}

// WithExponentialBackoff spaces retries exponentially: the first retry
// waits initial, each later one waits the previous delay times
// multiplier (2.0 when multiplier <= 0), and max caps the delay when
// positive.
func (r RetryBuilder) WithExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) RetryBuilder {
	if multiplier <= 0 {
		multiplier = 2.0
	}
	return r.with(func(p *RetryPolicy) {
		p.InitialBackoff = initial
		p.BackoffMultiplier = multiplier
		p.MaxBackoff = max
	})
}

// WithConstantBackoff waits the same delay before every retry. It is
// exponential backoff with multiplier 1.0 and no cap.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	return r.with(func(p *RetryPolicy) {
		p.InitialBackoff = delay
		p.BackoffMultiplier = 1.0
		p.MaxBackoff = 0
	})
}

// Immediate clears any backoff configured earlier in the chain,
// restoring the Retry default of back-to-back attempts. MaxAttempts is
// unaffected.
func (r RetryBuilder) Immediate() RetryBuilder {
	return r.with(func(p *RetryPolicy) {
		p.InitialBackoff = 0
		p.BackoffMultiplier = 0
		p.MaxBackoff = 0
	})
}

// Policy returns the accumulated RetryPolicy.
func (r RetryBuilder) Policy() RetryPolicy {
	return r.policy
}
