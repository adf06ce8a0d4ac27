package transport

import (
	"context"

	"github.com/jrife/kestrel/mutate"
	"github.com/jrife/kestrel/rowkey"
)

// Filter is an opaque read filter expression passed
// through to the server unchanged.
type Filter string

// Chunk is a partial fragment of one cell's value
// delivered by a streaming read, tagged with enough
// metadata to reconstruct whole rows. Family and
// Qualifier are nil when unchanged from the previous
// chunk. A nonzero ValueSize announces that more
// fragments of the same cell's value follow; the cell is
// complete once a chunk with ValueSize = 0 arrives.
type Chunk struct {
	RowKey    rowkey.Key
	Family    *string
	Qualifier *[]byte
	Timestamp mutate.Timestamp
	Labels    []string
	Value     []byte
	ValueSize int
	// ResetRow discards everything received for the
	// current row.
	ResetRow bool
	// CommitRow marks the current row's cells as fully
	// delivered and safe to hand to the caller.
	CommitRow bool
}

// ChunkStream is the receiving side of one read stream.
// Recv returns io.EOF after the final chunk; any other
// error carries the stream-level status.
type ChunkStream interface {
	Recv() (Chunk, error)
}

// Transport is the streaming RPC boundary this client
// borrows per attempt. It is externally owned: the client
// never closes or reconfigures it, and independent
// operations may share it freely.
type Transport interface {
	mutate.MutateRowsCaller

	// ReadRows opens a stream yielding the chunks of
	// every requested row in key order.
	ReadRows(ctx context.Context, set rowkey.Set, filter Filter) (ChunkStream, error)
}
