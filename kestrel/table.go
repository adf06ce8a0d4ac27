package kestrel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrife/kestrel/mutate"
	"github.com/jrife/kestrel/read"
	"github.com/jrife/kestrel/retry"
	"github.com/jrife/kestrel/rowkey"
	"github.com/jrife/kestrel/transport"
	"github.com/jrife/kestrel/utils/log"
	"go.uber.org/zap"
)

// TableConfig contains configuration for a Table. The
// policy fields are prototypes: each logical operation
// clones them so that concurrent operations never share
// mutable counters or deadlines.
type TableConfig struct {
	Logger    *zap.Logger
	Transport transport.Transport

	RetryPolicy              retry.Policy
	BackoffPolicy            retry.BackoffPolicy
	IdempotentMutationPolicy mutate.IdempotentMutationPolicy
}

// Table is the thin entry point for writes and reads
// against one table of the remote store. All retry state
// machines live below it; the table only clones policies,
// derives per-operation loggers, and drives the loops.
// Tables are safe for concurrent use.
type Table struct {
	logger      *zap.Logger
	transport   transport.Transport
	retryPolicy retry.Policy
	backoff     retry.BackoffPolicy
	idempotent  mutate.IdempotentMutationPolicy
}

// NewTable creates a table over the given transport.
func NewTable(config TableConfig) *Table {
	table := &Table{
		logger:      config.Logger,
		transport:   config.Transport,
		retryPolicy: config.RetryPolicy,
		backoff:     config.BackoffPolicy,
		idempotent:  config.IdempotentMutationPolicy,
	}

	if table.logger == nil {
		table.logger = zap.L()
	}

	if table.retryPolicy == nil {
		table.retryPolicy = retry.NewLimitedErrorCountPolicy(3)
	}

	if table.backoff == nil {
		table.backoff = retry.NewExponentialBackoffPolicy(10*time.Millisecond, time.Second)
	}

	if table.idempotent == nil {
		table.idempotent = mutate.SafeIdempotentPolicy{}
	}

	return table
}

// ApplyBulk applies a batch of entries, retrying per the
// table's policies, and returns the entries that could not
// be applied. Expected per-entry failures never surface as
// an error; an empty result means every entry succeeded.
// Each failure reports the entry's index in the caller's
// batch.
func (table *Table) ApplyBulk(ctx context.Context, entries []mutate.Entry) []mutate.FailedMutation {
	logger := table.operationLogger(ctx, "ApplyBulk")
	logger.Debug("start ApplyBulk()", zap.Int("entries", len(entries)))

	retryPolicy := table.retryPolicy.Clone()
	backoffPolicy := table.backoff.Clone()

	mutator := mutate.NewBulkMutator(mutate.BulkMutatorConfig{
		Logger:  logger,
		Policy:  table.idempotent.Clone(),
		Entries: entries,
	})

	for {
		mutator.MakeOneRequest(ctx, table.transport)

		if !mutator.HasPendingMutations() {
			break
		}

		st := mutator.LastStatus()

		if !retryPolicy.OnFailure(st) {
			break
		}

		if err := retry.Sleep(ctx, backoffPolicy.OnCompletion(st)); err != nil {
			break
		}
	}

	failures := mutator.ExtractFinalFailures()

	logger.Debug("return from ApplyBulk()", zap.Int("failures", len(failures)))

	return failures
}

// Apply applies a single entry, retrying per the table's
// policies.
func (table *Table) Apply(ctx context.Context, entry mutate.Entry) error {
	failures := table.ApplyBulk(ctx, []mutate.Entry{entry})

	if len(failures) > 0 {
		return fmt.Errorf("could not apply mutation to row %s: %s", entry.RowKey, failures[0].Status.Err())
	}

	return nil
}

// ReadRows returns a single-pass cursor over the rows in
// set, resuming broken streams transparently after the
// last committed row. A set with no keys and no ranges
// reads the whole table. The cursor is not restartable;
// issue a fresh call instead.
func (table *Table) ReadRows(ctx context.Context, set rowkey.Set, filter transport.Filter) *read.Rows {
	return read.NewRows(ctx, read.RowsConfig{
		Logger:        table.operationLogger(ctx, "ReadRows"),
		Opener:        table.transport,
		Set:           set,
		Filter:        filter,
		RetryPolicy:   table.retryPolicy.Clone(),
		BackoffPolicy: table.backoff.Clone(),
	})
}

// ReadRow reads a single row. The second return value
// reports whether the row exists.
func (table *Table) ReadRow(ctx context.Context, key rowkey.Key, filter transport.Filter) (read.Row, bool, error) {
	var set rowkey.Set

	set.Append(key)

	rows := table.ReadRows(ctx, set, filter)
	defer rows.Close()

	if !rows.Next() {
		return read.Row{}, false, rows.Err()
	}

	return rows.Row(), true, nil
}

func (table *Table) operationLogger(ctx context.Context, operation string) *zap.Logger {
	return log.WithContext(ctx, table.logger).With(
		zap.String("operation", operation),
		zap.String("operation_id", uuid.New().String()),
	)
}
