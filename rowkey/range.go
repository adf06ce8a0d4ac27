package rowkey

import (
	"fmt"
)

// BoundKind describes how a range bound treats
// the key at its boundary.
type BoundKind int

const (
	// BoundUnbounded extends the range to the start
	// or end of the whole key space.
	BoundUnbounded BoundKind = iota
	// BoundClosed includes the boundary key.
	BoundClosed
	// BoundOpen excludes the boundary key.
	BoundOpen
)

// Bound is one end of a Range.
type Bound struct {
	Kind BoundKind
	Key  Key
}

// Unbounded returns a bound covering the rest of
// the key space in its direction.
func Unbounded() Bound {
	return Bound{Kind: BoundUnbounded}
}

// Closed returns an inclusive bound at k.
func Closed(k Key) Bound {
	return Bound{Kind: BoundClosed, Key: k}
}

// Open returns an exclusive bound at k.
func Open(k Key) Bound {
	return Bound{Kind: BoundOpen, Key: k}
}

func (b Bound) String() string {
	if b.Kind == BoundUnbounded {
		return "unbounded"
	}

	kind := "closed"

	if b.Kind == BoundOpen {
		kind = "open"
	}

	return fmt.Sprintf("%s(%s)", kind, b.Key)
}

// Range represents an interval of row keys. A range
// is well-formed regardless of whether it is empty:
// emptiness is a derived property, never a constructor
// precondition.
type Range struct {
	Start Bound
	End   Bound
}

// All returns a range matching every key.
func All() Range {
	return Range{Start: Unbounded(), End: Unbounded()}
}

// ClosedOpen returns the range start <= k < end.
func ClosedOpen(start, end Key) Range {
	return Range{Start: Closed(start), End: Open(end)}
}

// ClosedClosed returns the range start <= k <= end.
func ClosedClosed(start, end Key) Range {
	return Range{Start: Closed(start), End: Closed(end)}
}

// OpenOpen returns the range start < k < end.
func OpenOpen(start, end Key) Range {
	return Range{Start: Open(start), End: Open(end)}
}

// OpenClosed returns the range start < k <= end.
func OpenClosed(start, end Key) Range {
	return Range{Start: Open(start), End: Closed(end)}
}

// StartingAt returns the range from start to the end
// of the key space.
func StartingAt(start Bound) Range {
	return Range{Start: start, End: Unbounded()}
}

// EndingAt returns the range from the start of the key
// space to end.
func EndingAt(end Bound) Range {
	return Range{Start: Unbounded(), End: end}
}

// SingleKey returns the range containing only k.
func SingleKey(k Key) Range {
	return ClosedClosed(k, k)
}

// PrefixRange returns the range of all keys that have
// the prefix p, including p itself.
func PrefixRange(p Key) Range {
	end := Inc(p)

	if end == nil {
		return StartingAt(Closed(p))
	}

	return ClosedOpen(p, end)
}

// IsEmpty returns true iff no key satisfies Contains.
// A range is empty iff its start key sorts after its end
// key, the keys are equal and either bound is open, or
// both bounds are open around keys with no key between
// them. An unbounded end never makes a range empty; an
// unbounded start is equivalent to a closed bound at the
// empty key, the minimum of the key space.
func (r Range) IsEmpty() bool {
	if r.End.Kind == BoundUnbounded {
		return false
	}

	start := r.Start

	if start.Kind == BoundUnbounded {
		start = Closed(nil)
	}

	switch c := Compare(start.Key, r.End.Key); {
	case c > 0:
		return true
	case c == 0:
		return start.Kind == BoundOpen || r.End.Kind == BoundOpen
	}

	// start < end, but two open bounds may still pin an
	// interval containing no key: nothing sorts between a
	// key and its immediate successor.
	if start.Kind == BoundOpen && r.End.Kind == BoundOpen {
		return Compare(Next(start.Key), r.End.Key) >= 0
	}

	return false
}

// Contains returns true iff k is not below the start
// bound and not above the end bound.
func (r Range) Contains(k Key) bool {
	switch r.Start.Kind {
	case BoundClosed:
		if Compare(k, r.Start.Key) < 0 {
			return false
		}
	case BoundOpen:
		if Compare(k, r.Start.Key) <= 0 {
			return false
		}
	}

	switch r.End.Kind {
	case BoundClosed:
		if Compare(k, r.End.Key) > 0 {
			return false
		}
	case BoundOpen:
		if Compare(k, r.End.Key) >= 0 {
			return false
		}
	}

	return true
}

// Intersect returns the intersection of r and other
// and whether that intersection is non-empty. The
// tighter of the two start bounds and the tighter of
// the two end bounds win; on equal keys an open bound
// is tighter than a closed one.
func (r Range) Intersect(other Range) (Range, bool) {
	intersection := Range{
		Start: tighterStart(r.Start, other.Start),
		End:   tighterEnd(r.End, other.End),
	}

	return intersection, !intersection.IsEmpty()
}

func tighterStart(a, b Bound) Bound {
	if a.Kind == BoundUnbounded {
		return b
	}

	if b.Kind == BoundUnbounded {
		return a
	}

	switch c := Compare(a.Key, b.Key); {
	case c > 0:
		return a
	case c < 0:
		return b
	}

	if a.Kind == BoundOpen {
		return a
	}

	return b
}

func tighterEnd(a, b Bound) Bound {
	if a.Kind == BoundUnbounded {
		return b
	}

	if b.Kind == BoundUnbounded {
		return a
	}

	switch c := Compare(a.Key, b.Key); {
	case c < 0:
		return a
	case c > 0:
		return b
	}

	if a.Kind == BoundOpen {
		return a
	}

	return b
}
