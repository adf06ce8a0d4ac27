package read_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrife/kestrel/read"
	"github.com/jrife/kestrel/retry"
	"github.com/jrife/kestrel/rowkey"
	"github.com/jrife/kestrel/transport"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func committedRow(key, value string) transport.Chunk {
	family := "f"
	qualifier := []byte("q")

	return transport.Chunk{
		RowKey:    rowkey.Key(key),
		Family:    &family,
		Qualifier: &qualifier,
		Timestamp: 1000,
		Value:     []byte(value),
		CommitRow: true,
	}
}

func partialRow(key, value string) transport.Chunk {
	c := committedRow(key, value)
	c.CommitRow = false

	return c
}

func fastPolicies() (retry.Policy, retry.BackoffPolicy) {
	return retry.NewLimitedErrorCountPolicy(3),
		retry.NewExponentialBackoffPolicy(time.Millisecond, 2*time.Millisecond)
}

func newRows(tr *transport.ScriptedTransport, set rowkey.Set) *read.Rows {
	policy, backoff := fastPolicies()

	return read.NewRows(context.Background(), read.RowsConfig{
		Opener:        tr,
		Set:           set,
		RetryPolicy:   policy,
		BackoffPolicy: backoff,
	})
}

func collect(t *testing.T, rows *read.Rows) []read.Row {
	t.Helper()

	var collected []read.Row

	for rows.Next() {
		collected = append(collected, rows.Row())
	}

	return collected
}

func TestRowsReadsAllRows(t *testing.T) {
	tr := &transport.ScriptedTransport{
		ReadScript: []transport.ReadStep{
			{Chunks: []transport.Chunk{
				committedRow("a", "1"),
				committedRow("b", "2"),
			}},
		},
	}

	rows := newRows(tr, rowkey.Set{})
	collected := collect(t, rows)

	if err := rows.Err(); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if len(collected) != 2 || string(collected[0].Key) != "a" || string(collected[1].Key) != "b" {
		t.Fatalf("unexpected rows %#v", collected)
	}

	if string(collected[0].Cells[0].Value()) != "1" {
		t.Fatalf("unexpected cell value %q", collected[0].Cells[0].Value())
	}
}

func TestRowsResumesAfterLastCommittedRow(t *testing.T) {
	// the first stream commits row a, starts row b, then
	// dies; the resumed stream serves b and c
	tr := &transport.ScriptedTransport{
		ReadScript: []transport.ReadStep{
			{
				Chunks: []transport.Chunk{
					committedRow("a", "1"),
					partialRow("b", "stale"),
				},
				Err: status.Error(codes.Unavailable, "stream broke"),
			},
			{Chunks: []transport.Chunk{
				committedRow("b", "fresh"),
				committedRow("c", "3"),
			}},
		},
	}

	rows := newRows(tr, rowkey.Set{})
	collected := collect(t, rows)

	if err := rows.Err(); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if len(collected) != 3 {
		t.Fatalf("expected 3 rows, got %#v", collected)
	}

	// the partial row b was discarded, not delivered twice
	if string(collected[1].Key) != "b" || string(collected[1].Cells[0].Value()) != "fresh" {
		t.Fatalf("expected row b from the resumed stream, got %#v", collected[1])
	}

	if len(tr.ReadCalls) != 2 {
		t.Fatalf("expected 2 stream opens, got %d", len(tr.ReadCalls))
	}

	resumed := tr.ReadCalls[1]

	if len(resumed.Ranges) != 1 {
		t.Fatalf("expected the resumed set to hold one range, got %#v", resumed)
	}

	expectedStart := rowkey.Open(rowkey.Key("a"))

	if resumed.Ranges[0].Start.Kind != expectedStart.Kind || rowkey.Compare(resumed.Ranges[0].Start.Key, expectedStart.Key) != 0 {
		t.Fatalf("expected the resumed range to start open after a, got %#v", resumed.Ranges[0])
	}
}

func TestRowsRetriesFailedOpen(t *testing.T) {
	tr := &transport.ScriptedTransport{
		ReadScript: []transport.ReadStep{
			{Err: status.Error(codes.Unavailable, "cannot open")},
			{Chunks: []transport.Chunk{committedRow("a", "1")}},
		},
	}

	// the scripted error arrives through the stream's
	// first Recv, which the reader treats the same as a
	// failed open
	rows := newRows(tr, rowkey.Set{})
	collected := collect(t, rows)

	if err := rows.Err(); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if len(collected) != 1 {
		t.Fatalf("expected 1 row, got %#v", collected)
	}
}

func TestRowsPermanentErrorSurfaces(t *testing.T) {
	tr := &transport.ScriptedTransport{
		ReadScript: []transport.ReadStep{
			{Err: status.Error(codes.PermissionDenied, "no")},
		},
	}

	rows := newRows(tr, rowkey.Set{})

	if rows.Next() {
		t.Fatalf("expected no rows")
	}

	if st := status.Convert(rows.Err()); st.Code() != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %#v", rows.Err())
	}

	if len(tr.ReadCalls) != 1 {
		t.Fatalf("expected no retry after a permanent error, got %d opens", len(tr.ReadCalls))
	}
}

func TestRowsRetryBudgetExhausted(t *testing.T) {
	tr := &transport.ScriptedTransport{
		ReadScript: []transport.ReadStep{
			{Err: status.Error(codes.Unavailable, "1")},
			{Err: status.Error(codes.Unavailable, "2")},
		},
	}

	rows := read.NewRows(context.Background(), read.RowsConfig{
		Opener:        tr,
		RetryPolicy:   retry.NewLimitedErrorCountPolicy(1),
		BackoffPolicy: retry.NewExponentialBackoffPolicy(time.Millisecond, 2*time.Millisecond),
	})

	if rows.Next() {
		t.Fatalf("expected no rows")
	}

	if st := status.Convert(rows.Err()); st.Code() != codes.Unavailable {
		t.Fatalf("expected the exhausting status to surface, got %#v", rows.Err())
	}

	if len(tr.ReadCalls) != 2 {
		t.Fatalf("expected 2 opens, got %d", len(tr.ReadCalls))
	}
}

func TestRowsUncommittedRowAtEOF(t *testing.T) {
	tr := &transport.ScriptedTransport{
		ReadScript: []transport.ReadStep{
			{Chunks: []transport.Chunk{partialRow("a", "1")}},
		},
	}

	rows := newRows(tr, rowkey.Set{})

	if rows.Next() {
		t.Fatalf("expected no rows")
	}

	if rows.Err() == nil {
		t.Fatalf("expected a protocol violation error")
	}
}

func TestRowsStopsWhenSetExhausted(t *testing.T) {
	// every requested row was committed before the stream
	// failure, so there is nothing left to resume
	tr := &transport.ScriptedTransport{
		ReadScript: []transport.ReadStep{
			{
				Chunks: []transport.Chunk{committedRow("a", "1")},
				Err:    status.Error(codes.Unavailable, "stream broke"),
			},
		},
	}

	var set rowkey.Set

	set.Append(rowkey.Key("a"))

	rows := newRows(tr, set)
	collected := collect(t, rows)

	if err := rows.Err(); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if len(collected) != 1 {
		t.Fatalf("expected 1 row, got %#v", collected)
	}

	if len(tr.ReadCalls) != 1 {
		t.Fatalf("expected no resume for an exhausted set, got %d opens", len(tr.ReadCalls))
	}
}

func TestRowsClose(t *testing.T) {
	tr := &transport.ScriptedTransport{
		ReadScript: []transport.ReadStep{
			{Chunks: []transport.Chunk{
				committedRow("a", "1"),
				committedRow("b", "2"),
			}},
		},
	}

	rows := newRows(tr, rowkey.Set{})

	if !rows.Next() {
		t.Fatalf("expected a first row")
	}

	rows.Close()

	if rows.Next() {
		t.Fatalf("expected Next to return false after Close")
	}
}
