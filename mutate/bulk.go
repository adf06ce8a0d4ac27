package mutate

import (
	"context"
	"sort"

	"github.com/jrife/kestrel/retry"
	"go.uber.org/zap"
	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// EntryResult is the terminal per-entry status streamed
// back by the server for one attempt. Index refers to the
// request order of the attempt that produced it, not the
// caller's original batch order.
type EntryResult struct {
	Index  int
	Status *spb.Status
}

// MutateRowsCaller is the slice of the transport the bulk
// mutator needs: one streaming call that accepts an
// ordered list of entries and yields a terminal status per
// entry plus an overall stream-level error.
type MutateRowsCaller interface {
	MutateRows(ctx context.Context, entries []Entry) ([]EntryResult, error)
}

// FailedMutation is a terminal record for one entry that
// can no longer be retried. Index is the entry's position
// in the caller's original batch. Once emitted it is final.
type FailedMutation struct {
	Index  int
	Status *status.Status
}

// annotatedEntry carries one entry through the retry loop
// along with its position in the caller's original batch
// and its idempotency classification.
type annotatedEntry struct {
	index      int
	idempotent bool
	entry      Entry
}

// BulkMutatorConfig contains configuration for a
// BulkMutator.
type BulkMutatorConfig struct {
	Logger *zap.Logger
	// Policy classifies each mutation. An entry is
	// idempotent only if every mutation within it is.
	Policy IdempotentMutationPolicy
	// Entries is the caller's full batch. Ownership
	// transfers to the mutator.
	Entries []Entry
}

// BulkMutator drives repeated attempts of one bulk
// mutation batch. It tracks which entries the server has
// not yet resolved, decides what is safe to resend, and
// accumulates the final list of failures. Expected
// failures never surface as errors from its methods; they
// end up in ExtractFinalFailures' result.
//
// The attempt loop is strictly sequential: the caller
// runs one MakeOneRequest at a time and a mutator is
// never shared between goroutines.
type BulkMutator struct {
	logger     *zap.Logger
	pending    []annotatedEntry
	failures   []FailedMutation
	lastStatus *status.Status
	attempt    int
	drained    bool
}

// NewBulkMutator creates a mutator holding the full batch.
// Every entry starts out pending, tagged with its original
// index and its idempotency classification.
func NewBulkMutator(config BulkMutatorConfig) *BulkMutator {
	mutator := &BulkMutator{
		logger:     config.Logger,
		pending:    make([]annotatedEntry, len(config.Entries)),
		lastStatus: status.New(codes.OK, ""),
	}

	if mutator.logger == nil {
		mutator.logger = zap.L()
	}

	for i, entry := range config.Entries {
		idempotent := true

		for _, m := range entry.Mutations {
			if !config.Policy.IsIdempotent(m) {
				idempotent = false

				break
			}
		}

		mutator.pending[i] = annotatedEntry{
			index:      i,
			idempotent: idempotent,
			entry:      entry,
		}
	}

	return mutator
}

// HasPendingMutations returns true while at least one
// entry still needs to be sent or resent.
func (mutator *BulkMutator) HasPendingMutations() bool {
	return len(mutator.pending) > 0
}

// LastStatus returns the status most recently responsible
// for leaving mutations pending: the attempt-level status
// if the attempt itself failed, otherwise the last
// retryable per-entry status that caused a requeue.
// Callers feed it to their retry and backoff policies
// between attempts.
func (mutator *BulkMutator) LastStatus() *status.Status {
	return mutator.lastStatus
}

// MakeOneRequest executes a single attempt: it moves every
// pending entry into the attempt's request, performs one
// streaming call, and files each entry per its result.
//
//   - OK: resolved, dropped permanently.
//   - retryable status, idempotent entry: requeued.
//   - retryable status, non-idempotent entry: failed.
//   - non-retryable status: failed.
//   - no result received (including full stream failure):
//     requeued if idempotent, failed otherwise. The default
//     treatment of an unknown outcome never resends a
//     non-idempotent entry.
//
// The returned status is the transport-level status of the
// attempt call itself, independent of per-entry statuses.
func (mutator *BulkMutator) MakeOneRequest(ctx context.Context, caller MutateRowsCaller) *status.Status {
	if mutator.drained {
		panic("mutate: MakeOneRequest called on a drained BulkMutator")
	}

	current := mutator.pending
	mutator.pending = nil
	mutator.attempt++

	logger := mutator.logger.With(zap.Int("attempt", mutator.attempt))
	logger.Debug("start attempt", zap.Int("entries", len(current)))

	entries := make([]Entry, len(current))

	for i, a := range current {
		entries[i] = a.entry
	}

	results, err := caller.MutateRows(ctx, entries)
	attemptStatus := status.Convert(err)
	mutator.lastStatus = attemptStatus

	hasResult := make([]bool, len(current))

	for _, result := range results {
		if result.Index < 0 || result.Index >= len(current) || hasResult[result.Index] {
			// A result for an index we did not send, or a
			// second result for one we did, is a protocol
			// violation. Fail the attempt permanently;
			// entries without a result are filed below
			// under the non-retryable attempt status.
			attemptStatus = status.Newf(codes.Internal, "protocol violation: unexpected result index %d", result.Index)
			mutator.lastStatus = attemptStatus

			logger.Debug("unexpected result index", zap.Int("index", result.Index))

			break
		}

		hasResult[result.Index] = true
		mutator.fileResult(current[result.Index], status.FromProto(result.Status))
	}

	for i, a := range current {
		if !hasResult[i] {
			mutator.fileUnresolved(a, attemptStatus)
		}
	}

	logger.Debug("attempt complete",
		zap.String("status", attemptStatus.Code().String()),
		zap.Int("pending", len(mutator.pending)),
		zap.Int("failed", len(mutator.failures)))

	return attemptStatus
}

// fileResult files one entry for which the server reported
// a terminal status this attempt.
func (mutator *BulkMutator) fileResult(a annotatedEntry, st *status.Status) {
	if st.Code() == codes.OK {
		return
	}

	if a.idempotent && retry.IsRetryable(st.Code()) {
		mutator.lastStatus = st
		mutator.pending = append(mutator.pending, a)

		return
	}

	mutator.failures = append(mutator.failures, FailedMutation{Index: a.index, Status: st})
}

// fileUnresolved files one entry for which no result
// arrived this attempt, e.g. because the stream died
// mid-flight. The entry's outcome is unknown: resending is
// safe only for idempotent entries, and only while the
// attempt status itself is not a permanent error.
func (mutator *BulkMutator) fileUnresolved(a annotatedEntry, attemptStatus *status.Status) {
	retryable := attemptStatus.Code() == codes.OK || retry.IsRetryable(attemptStatus.Code())

	if a.idempotent && retryable {
		if attemptStatus.Code() == codes.OK {
			// The stream finished cleanly without a result
			// for this entry. Requeue it, and leave a
			// retryable status behind for the caller's
			// policies.
			mutator.lastStatus = status.New(codes.Unavailable, "no result received for entry")
		}

		mutator.pending = append(mutator.pending, a)

		return
	}

	st := attemptStatus

	if st.Code() == codes.OK {
		st = status.New(codes.Internal, "no result received for entry")
	}

	mutator.failures = append(mutator.failures, FailedMutation{Index: a.index, Status: st})
}

// ExtractFinalFailures converts every entry still pending
// into a failure carrying a distinct retry-budget-exhausted
// status and returns the accumulated failures ordered by
// original batch index. The mutator is drained afterwards:
// further MakeOneRequest calls panic and further calls to
// this method return nil.
func (mutator *BulkMutator) ExtractFinalFailures() []FailedMutation {
	failures := mutator.failures
	mutator.failures = nil

	for _, a := range mutator.pending {
		failures = append(failures, FailedMutation{
			Index:  a.index,
			Status: status.New(codes.DeadlineExceeded, "retry budget exhausted before the mutation was resolved"),
		})
	}

	mutator.pending = nil
	mutator.drained = true

	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Index < failures[j].Index
	})

	return failures
}
