package read

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jrife/kestrel/retry"
	"github.com/jrife/kestrel/rowkey"
	"github.com/jrife/kestrel/transport"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"
)

// StreamOpener is the slice of the transport the reader
// needs: one streaming call yielding the chunks of every
// requested row in key order.
type StreamOpener interface {
	ReadRows(ctx context.Context, set rowkey.Set, filter transport.Filter) (transport.ChunkStream, error)
}

// RowsConfig contains configuration for a Rows cursor.
// RetryPolicy and BackoffPolicy must be instances owned by
// this operation; callers holding prototypes clone them
// first.
type RowsConfig struct {
	Logger        *zap.Logger
	Opener        StreamOpener
	Set           rowkey.Set
	Filter        transport.Filter
	RetryPolicy   retry.Policy
	BackoffPolicy retry.BackoffPolicy
}

// Rows is a single-pass cursor over the rows of one
// logical read. A broken stream is resumed transparently
// starting after the last fully-committed row, so no
// committed row is ever delivered twice and no
// partially-received row is ever delivered at all. The
// cursor is not restartable once partially consumed; issue
// a fresh read instead.
type Rows struct {
	ctx     context.Context
	logger  *zap.Logger
	opener  StreamOpener
	filter  transport.Filter
	policy  retry.Policy
	backoff retry.BackoffPolicy

	remaining rowkey.Set
	stream    transport.ChunkStream
	merger    chunkMerger
	row       Row
	err       error
	done      bool
}

// NewRows creates a cursor over the rows in config.Set. A
// set with no keys and no ranges reads the whole table.
// The stream is opened lazily on the first Next call.
func NewRows(ctx context.Context, config RowsConfig) *Rows {
	rows := &Rows{
		ctx:     ctx,
		logger:  config.Logger,
		opener:  config.Opener,
		filter:  config.Filter,
		policy:  config.RetryPolicy,
		backoff: config.BackoffPolicy,
	}

	if rows.logger == nil {
		rows.logger = zap.L()
	}

	if rows.policy == nil {
		rows.policy = retry.NewLimitedErrorCountPolicy(3)
	}

	if rows.backoff == nil {
		rows.backoff = retry.NewExponentialBackoffPolicy(10*time.Millisecond, time.Second)
	}

	rows.remaining = config.Set

	if len(rows.remaining.Keys) == 0 && len(rows.remaining.Ranges) == 0 {
		rows.remaining.AppendRange(rowkey.All())
	}

	return rows
}

// Next advances to the next committed row, reopening the
// underlying stream as needed. It returns false once the
// read is exhausted or has failed; consult Err to tell the
// two apart.
func (rows *Rows) Next() bool {
	for {
		if rows.done || rows.err != nil {
			return false
		}

		if rows.stream == nil {
			stream, err := rows.opener.ReadRows(rows.ctx, rows.remaining, rows.filter)

			if err != nil {
				if !rows.resume(err) {
					return false
				}

				continue
			}

			rows.stream = stream
		}

		chunk, err := rows.stream.Recv()

		if err == io.EOF {
			if rows.merger.partial() {
				rows.err = fmt.Errorf("protocol violation: stream ended with an uncommitted row %s", rows.merger.row.Key)
			}

			rows.done = true

			return false
		}

		if err != nil {
			if !rows.resume(err) {
				return false
			}

			continue
		}

		row, committed, err := rows.merger.consume(chunk)

		if err != nil {
			rows.err = err

			return false
		}

		if committed {
			rows.row = row

			return true
		}
	}
}

// resume handles a stream-level failure: when the retry
// policy permits, it discards the partial row buffer,
// shrinks the remaining key set to everything after the
// last committed row, waits per the backoff policy, and
// arranges for a fresh stream. It returns false when the
// cursor cannot continue.
func (rows *Rows) resume(err error) bool {
	st := status.Convert(err)

	if !rows.policy.OnFailure(st) {
		rows.err = err

		return false
	}

	rows.logger.Debug("read stream failed, resuming",
		zap.String("status", st.Code().String()),
		zap.String("last_committed", rows.merger.lastCommitted.String()))

	rows.merger.reset()
	rows.stream = nil

	if last := rows.merger.lastCommitted; last != nil {
		rows.remaining = rows.remaining.Intersect(rowkey.StartingAt(rowkey.Open(last)))

		if rows.remaining.IsEmpty() {
			// every requested row was already delivered
			rows.done = true

			return false
		}
	}

	if sleepErr := retry.Sleep(rows.ctx, rows.backoff.OnCompletion(st)); sleepErr != nil {
		rows.err = sleepErr

		return false
	}

	return true
}

// Row returns the row most recently reached by Next.
func (rows *Rows) Row() Row {
	return rows.row
}

// Err returns the failure that stopped the cursor, if any.
func (rows *Rows) Err() error {
	return rows.err
}

// Close abandons the cursor. It is safe to call at any
// point; subsequent Next calls return false.
func (rows *Rows) Close() {
	rows.done = true
}
