package read

import (
	"github.com/jrife/kestrel/mutate"
	"github.com/jrife/kestrel/rowkey"
)

// Cell is one stored value of a row. Its value arrives as
// one or more byte fragments from the read stream and is
// concatenated lazily: the first Value call computes the
// concatenation once and every later call returns a view
// of the identical backing storage, so callers may compare
// by identity to detect an already-materialized value.
type Cell struct {
	RowKey    rowkey.Key
	Family    string
	Qualifier []byte
	Timestamp mutate.Timestamp
	Labels    []string

	fragments    [][]byte
	value        []byte
	materialized bool
}

// appendFragment adds one received fragment in arrival
// order. Empty fragments are elided: they do not separate
// the non-empty fragments around them.
func (cell *Cell) appendFragment(fragment []byte) {
	if len(fragment) == 0 {
		return
	}

	cell.fragments = append(cell.fragments, fragment)
}

// Value returns the cell's value, concatenating the
// received fragments on first use. Zero fragments produce
// an empty value. The returned slice is backed by the same
// storage on every call; callers must not modify it.
func (cell *Cell) Value() []byte {
	if cell.materialized {
		return cell.value
	}

	cell.materialized = true

	switch len(cell.fragments) {
	case 0:
	case 1:
		// single fragment: adopt its storage as-is
		cell.value = cell.fragments[0]
	default:
		size := 0

		for _, fragment := range cell.fragments {
			size += len(fragment)
		}

		cell.value = make([]byte, 0, size)

		for _, fragment := range cell.fragments {
			cell.value = append(cell.value, fragment...)
		}
	}

	cell.fragments = nil

	return cell.value
}

// Row is a row key plus the ordered cells sharing that
// key, in stream arrival order.
type Row struct {
	Key   rowkey.Key
	Cells []Cell
}
