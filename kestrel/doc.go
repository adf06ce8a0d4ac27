// Package kestrel is a client for a remote, row-oriented,
// sorted key-value store accessed over a streaming RPC
// interface. It lets an application issue single-row and
// multi-row writes and range reads while hiding transient
// network and service failures, without silently
// duplicating non-idempotent work and without blocking
// the caller past a bounded retry budget.
//
// The Table type is a thin entry point. The interesting
// machinery lives below it:
//
//   - retry: retry budgets and exponential backoff,
//     cloned from prototypes so concurrent operations
//     never share mutable counters or deadlines.
//   - mutate: the mutation model, idempotency
//     classification, and the bulk-mutation retry state
//     machine that tracks which entries of a batch still
//     need to be resent across attempts.
//   - rowkey: an interval algebra over binary row keys,
//     used to scope reads and to shrink the remaining key
//     space when a read stream is resumed.
//   - read: reconstruction of whole rows from the partial
//     chunks of a read stream, transparently resumable
//     after the last committed row.
//
// The transport itself is borrowed, never owned: the
// client issues one attempt at a time against an
// externally managed connection and never closes or
// reconfigures it.
package kestrel
