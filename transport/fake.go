package transport

import (
	"context"
	"io"

	"github.com/jrife/kestrel/mutate"
	"github.com/jrife/kestrel/rowkey"
	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
)

var _ Transport = (*ScriptedTransport)(nil)

// MutateStep scripts the outcome of one MutateRows
// attempt.
type MutateStep struct {
	Results []mutate.EntryResult
	Err     error
}

// ReadStep scripts one ReadRows stream. Err, if set,
// terminates the stream after the scripted chunks in
// place of io.EOF.
type ReadStep struct {
	Chunks []Chunk
	Err    error
}

// ScriptedTransport is a Transport whose responses are
// scripted per attempt, in order. Once a script runs out,
// MutateRows acknowledges every entry with OK and
// ReadRows serves an empty stream. Calls are recorded for
// assertions.
type ScriptedTransport struct {
	MutateScript []MutateStep
	ReadScript   []ReadStep

	MutateCalls [][]mutate.Entry
	ReadCalls   []rowkey.Set
}

// MutateRows implements mutate.MutateRowsCaller.MutateRows
func (transport *ScriptedTransport) MutateRows(ctx context.Context, entries []mutate.Entry) ([]mutate.EntryResult, error) {
	transport.MutateCalls = append(transport.MutateCalls, entries)

	if len(transport.MutateScript) == 0 {
		return OKResults(len(entries)), nil
	}

	step := transport.MutateScript[0]
	transport.MutateScript = transport.MutateScript[1:]

	return step.Results, step.Err
}

// ReadRows implements Transport.ReadRows
func (transport *ScriptedTransport) ReadRows(ctx context.Context, set rowkey.Set, filter Filter) (ChunkStream, error) {
	transport.ReadCalls = append(transport.ReadCalls, set)

	if len(transport.ReadScript) == 0 {
		return &sliceChunkStream{}, nil
	}

	step := transport.ReadScript[0]
	transport.ReadScript = transport.ReadScript[1:]

	return &sliceChunkStream{chunks: step.Chunks, err: step.Err}, nil
}

// OKResults builds per-entry OK results for entries 0..n-1.
func OKResults(n int) []mutate.EntryResult {
	results := make([]mutate.EntryResult, n)

	for i := range results {
		results[i] = Result(i, codes.OK, "")
	}

	return results
}

// Result builds one per-entry result.
func Result(index int, code codes.Code, message string) mutate.EntryResult {
	return mutate.EntryResult{
		Index:  index,
		Status: &spb.Status{Code: int32(code), Message: message},
	}
}

// sliceChunkStream serves a fixed chunk list, ending with
// io.EOF or a scripted stream error.
type sliceChunkStream struct {
	chunks []Chunk
	err    error
	next   int
}

func (stream *sliceChunkStream) Recv() (Chunk, error) {
	if stream.next < len(stream.chunks) {
		chunk := stream.chunks[stream.next]
		stream.next++

		return chunk, nil
	}

	if stream.err != nil {
		return Chunk{}, stream.err
	}

	return Chunk{}, io.EOF
}
