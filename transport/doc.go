// Package transport describes the streaming RPC boundary
// between the client and the store: one call that applies
// a batch of row mutations and streams back a terminal
// status per entry, and one call that streams back the
// chunks of every requested row. The package also ships
// two fakes, a scriptable transport for unit tests and an
// in-memory table with real mutation and chunking
// semantics for end-to-end tests.
package transport
