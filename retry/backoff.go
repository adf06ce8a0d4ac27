package retry

import (
	"context"
	"math/rand"
	"time"

	"google.golang.org/grpc/status"
)

// BackoffPolicy decides how long to wait before the next
// attempt, independent of whether a retry is permitted.
// OnCompletion tolerates being called after a success as
// well as a failure; the caller decides whether to honor
// the delay.
type BackoffPolicy interface {
	// OnCompletion returns the wait time before the
	// next attempt.
	OnCompletion(st *status.Status) time.Duration
	// Clone produces a fresh policy with the same
	// configured limits and reset internal state.
	Clone() BackoffPolicy
}

var _ BackoffPolicy = (*ExponentialBackoffPolicy)(nil)

type backoffOption func(*ExponentialBackoffPolicy)

// WithJitter randomizes each delay to spread retries from
// concurrent operations. A jittered delay always lies
// within [previous delay, previous delay * 2], capped at
// the policy's maximum.
func WithJitter(rand *rand.Rand) backoffOption {
	return func(policy *ExponentialBackoffPolicy) {
		policy.rand = rand
	}
}

// ExponentialBackoffPolicy starts at an initial delay,
// doubles on each call, caps at a maximum delay, and
// never returns a delay below the initial one.
type ExponentialBackoffPolicy struct {
	initial time.Duration
	maximum time.Duration
	current time.Duration
	rand    *rand.Rand
}

// NewExponentialBackoffPolicy creates a backoff policy
// whose delays grow from initial to maximum.
func NewExponentialBackoffPolicy(initial, maximum time.Duration, opts ...backoffOption) *ExponentialBackoffPolicy {
	policy := &ExponentialBackoffPolicy{
		initial: initial,
		maximum: maximum,
	}

	for _, opt := range opts {
		opt(policy)
	}

	return policy
}

// OnCompletion implements BackoffPolicy.OnCompletion
func (policy *ExponentialBackoffPolicy) OnCompletion(st *status.Status) time.Duration {
	if policy.current == 0 {
		policy.current = policy.initial

		return policy.current
	}

	lower := policy.current
	upper := lower * 2

	if upper > policy.maximum {
		upper = policy.maximum
	}

	delay := upper

	if policy.rand != nil {
		if span := upper - lower; span > 0 {
			delay = lower + time.Duration(policy.rand.Int63n(int64(span)+1))
		}
	}

	if delay < policy.initial {
		delay = policy.initial
	}

	policy.current = delay

	return delay
}

// Clone implements BackoffPolicy.Clone
func (policy *ExponentialBackoffPolicy) Clone() BackoffPolicy {
	clone := &ExponentialBackoffPolicy{
		initial: policy.initial,
		maximum: policy.maximum,
	}

	// Clones must not share a rand: each logical
	// operation owns independent mutable state.
	if policy.rand != nil {
		clone.rand = rand.New(rand.NewSource(policy.rand.Int63()))
	}

	return clone
}

// Sleep blocks for the requested delay or until the
// context is cancelled, whichever comes first. It returns
// the context's error if the wait was cut short.
func Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
