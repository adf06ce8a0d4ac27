package mutate

import (
	"github.com/jrife/kestrel/rowkey"
)

// Timestamp is a cell timestamp in microseconds since
// the unix epoch.
type Timestamp int64

// ServerTime is the sentinel timestamp meaning "assign
// the timestamp on the server at apply time". Mutations
// carrying it are not idempotent under the default
// policy: resending one could create a duplicate cell at
// a different server-chosen time.
const ServerTime Timestamp = -1

// TimestampRange is a half-open timestamp interval
// [Start, End). End = 0 means the range extends to the
// end of time.
type TimestampRange struct {
	Start Timestamp
	End   Timestamp
}

// Kind identifies the operation a Mutation performs on
// its row.
type Kind int

const (
	// KindSetCell writes one cell.
	KindSetCell Kind = iota
	// KindDeleteFromColumn deletes the cells of one
	// column within a timestamp range.
	KindDeleteFromColumn
	// KindDeleteFromFamily deletes every cell in one
	// column family.
	KindDeleteFromFamily
	// KindDeleteRow deletes the whole row.
	KindDeleteRow
)

// Mutation is an opaque operation on one row. It is
// immutable once constructed; ownership transfers into a
// batch when the entry holding it is submitted.
type Mutation struct {
	kind      Kind
	family    string
	qualifier []byte
	timestamp Timestamp
	value     []byte
	timeRange TimestampRange
}

// SetCell returns a mutation that writes value into
// family:qualifier at the given timestamp. Pass
// ServerTime to let the server assign the timestamp.
func SetCell(family string, qualifier []byte, timestamp Timestamp, value []byte) Mutation {
	return Mutation{
		kind:      KindSetCell,
		family:    family,
		qualifier: qualifier,
		timestamp: timestamp,
		value:     value,
	}
}

// DeleteFromColumn returns a mutation that deletes every
// cell of family:qualifier.
func DeleteFromColumn(family string, qualifier []byte) Mutation {
	return Mutation{
		kind:      KindDeleteFromColumn,
		family:    family,
		qualifier: qualifier,
	}
}

// DeleteTimestampRange returns a mutation that deletes the
// cells of family:qualifier whose timestamps fall within
// timeRange.
func DeleteTimestampRange(family string, qualifier []byte, timeRange TimestampRange) Mutation {
	return Mutation{
		kind:      KindDeleteFromColumn,
		family:    family,
		qualifier: qualifier,
		timeRange: timeRange,
	}
}

// DeleteFromFamily returns a mutation that deletes every
// cell in family.
func DeleteFromFamily(family string) Mutation {
	return Mutation{
		kind:   KindDeleteFromFamily,
		family: family,
	}
}

// DeleteRow returns a mutation that deletes the whole row.
func DeleteRow() Mutation {
	return Mutation{kind: KindDeleteRow}
}

// Kind returns the operation kind.
func (m Mutation) Kind() Kind {
	return m.kind
}

// Family returns the target column family, if applicable.
func (m Mutation) Family() string {
	return m.family
}

// Qualifier returns the target column qualifier, if
// applicable.
func (m Mutation) Qualifier() []byte {
	return m.qualifier
}

// Timestamp returns the cell timestamp for a set-cell
// mutation.
func (m Mutation) Timestamp() Timestamp {
	return m.timestamp
}

// Value returns the cell value for a set-cell mutation.
func (m Mutation) Value() []byte {
	return m.value
}

// TimeRange returns the timestamp range for a
// delete-from-column mutation.
func (m Mutation) TimeRange() TimestampRange {
	return m.timeRange
}

// Entry pairs a row key with an ordered sequence of
// mutations. All mutations in one entry apply atomically
// on the server: the client never splits an entry across
// two attempts differently. Either the whole entry
// succeeded or it is a candidate for resend as a whole.
type Entry struct {
	RowKey    rowkey.Key
	Mutations []Mutation
}

// NewEntry constructs an entry for the given row.
func NewEntry(rowKey rowkey.Key, mutations ...Mutation) Entry {
	return Entry{RowKey: rowKey, Mutations: mutations}
}
