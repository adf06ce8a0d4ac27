package retry_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jrife/kestrel/retry"
)

func TestExponentialBackoffSequence(t *testing.T) {
	policy := retry.NewExponentialBackoffPolicy(10*time.Millisecond, 50*time.Millisecond)

	expected := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
		50 * time.Millisecond,
	}

	var delays []time.Duration

	for range expected {
		delays = append(delays, policy.OnCompletion(unavailableStatus))
	}

	if diff := cmp.Diff(expected, delays); diff != "" {
		t.Fatalf("delay sequence differs (-want +got):\n%s", diff)
	}
}

func TestExponentialBackoffToleratesSuccess(t *testing.T) {
	policy := retry.NewExponentialBackoffPolicy(10*time.Millisecond, 50*time.Millisecond)

	if delay := policy.OnCompletion(okStatus); delay != 10*time.Millisecond {
		t.Fatalf("expected the first delay after a success to be the initial delay, got %s", delay)
	}

	if delay := policy.OnCompletion(okStatus); delay != 20*time.Millisecond {
		t.Fatalf("expected the delay to keep doubling, got %s", delay)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	policy := retry.NewExponentialBackoffPolicy(
		10*time.Millisecond,
		time.Second,
		retry.WithJitter(rand.New(rand.NewSource(42))),
	)

	previous := policy.OnCompletion(unavailableStatus)

	if previous != 10*time.Millisecond {
		t.Fatalf("expected the first delay to be the initial delay, got %s", previous)
	}

	for i := 0; i < 20; i++ {
		delay := policy.OnCompletion(unavailableStatus)

		lower := previous
		upper := 2 * previous

		if upper > time.Second {
			upper = time.Second
		}

		if lower > upper {
			lower = upper
		}

		if delay < lower || delay > upper {
			t.Fatalf("expected delay %d to lie within [%s, %s], got %s", i, lower, upper, delay)
		}

		previous = delay
	}
}

func TestExponentialBackoffClone(t *testing.T) {
	prototype := retry.NewExponentialBackoffPolicy(10*time.Millisecond, 50*time.Millisecond)
	prototype.OnCompletion(unavailableStatus)
	prototype.OnCompletion(unavailableStatus)

	if delay := prototype.Clone().OnCompletion(unavailableStatus); delay != 10*time.Millisecond {
		t.Fatalf("expected the clone to restart at the initial delay, got %s", delay)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()

	if err := retry.Sleep(ctx, time.Hour); err == nil {
		t.Fatalf("expected a cancelled context to abort the sleep")
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected the sleep to abort promptly, took %s", elapsed)
	}
}

func TestSleepCompletes(t *testing.T) {
	if err := retry.Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}
}
