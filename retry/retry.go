package retry

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsRetryable classifies a status code as a transient
// transport-level failure that may be retried. Every
// other code is permanent.
func IsRetryable(c codes.Code) bool {
	switch c {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	}

	return false
}

// Policy decides, given the sequence of failures seen so
// far, whether a logical operation may be attempted again.
// A policy has internal mutable state initialized at
// construction and is exhausted once OnFailure returns
// false; an exhausted policy keeps returning false.
//
// OnFailure treats an OK status as "not a failure": it
// returns true without consuming any budget so callers
// may consult the policy unconditionally after every
// attempt.
//
// Policies are not safe for concurrent use. Callers keep
// a prototype and Clone it for each logical operation.
type Policy interface {
	// OnFailure reports whether the operation may be
	// attempted again given the status of the attempt
	// that just completed.
	OnFailure(st *status.Status) bool
	// Clone produces a fresh policy with the same
	// configured limits and reset internal state.
	Clone() Policy
}

var _ Policy = (*LimitedErrorCountPolicy)(nil)
var _ Policy = (*LimitedTimePolicy)(nil)

// LimitedErrorCountPolicy permits up to a fixed number of
// retryable failures. Any non-retryable status exhausts
// the policy immediately regardless of the count.
type LimitedErrorCountPolicy struct {
	maximumFailures int
	failures        int
	exhausted       bool
}

// NewLimitedErrorCountPolicy creates a policy that allows
// up to maximumFailures retryable failures.
func NewLimitedErrorCountPolicy(maximumFailures int) *LimitedErrorCountPolicy {
	return &LimitedErrorCountPolicy{maximumFailures: maximumFailures}
}

// OnFailure implements Policy.OnFailure
func (policy *LimitedErrorCountPolicy) OnFailure(st *status.Status) bool {
	if policy.exhausted {
		return false
	}

	if st.Code() == codes.OK {
		return true
	}

	if !IsRetryable(st.Code()) {
		policy.exhausted = true

		return false
	}

	policy.failures++

	if policy.failures > policy.maximumFailures {
		policy.exhausted = true

		return false
	}

	return true
}

// Clone implements Policy.Clone
func (policy *LimitedErrorCountPolicy) Clone() Policy {
	return NewLimitedErrorCountPolicy(policy.maximumFailures)
}

// LimitedTimePolicy permits retries until wall-clock time
// exceeds a deadline fixed when the policy was created or
// cloned. Any non-retryable status exhausts the policy
// immediately. This deadline is independent of any
// caller-supplied context deadline; the tighter of the
// two applies in practice because backoff sleeps abort
// on context cancellation.
type LimitedTimePolicy struct {
	duration  time.Duration
	deadline  time.Time
	clock     func() time.Time
	exhausted bool
}

// NewLimitedTimePolicy creates a policy whose deadline is
// now + duration.
func NewLimitedTimePolicy(duration time.Duration) *LimitedTimePolicy {
	return NewLimitedTimePolicyWithClock(duration, time.Now)
}

// NewLimitedTimePolicyWithClock creates a policy that
// reads the wall clock through clock. Tests use it to
// control time.
func NewLimitedTimePolicyWithClock(duration time.Duration, clock func() time.Time) *LimitedTimePolicy {
	return &LimitedTimePolicy{
		duration: duration,
		deadline: clock().Add(duration),
		clock:    clock,
	}
}

// OnFailure implements Policy.OnFailure
func (policy *LimitedTimePolicy) OnFailure(st *status.Status) bool {
	if policy.exhausted {
		return false
	}

	if st.Code() == codes.OK {
		return true
	}

	if !IsRetryable(st.Code()) {
		policy.exhausted = true

		return false
	}

	if !policy.clock().Before(policy.deadline) {
		policy.exhausted = true

		return false
	}

	return true
}

// Clone implements Policy.Clone
func (policy *LimitedTimePolicy) Clone() Policy {
	return NewLimitedTimePolicyWithClock(policy.duration, policy.clock)
}
