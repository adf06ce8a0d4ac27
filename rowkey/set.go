package rowkey

// Set is a collection of individual keys and key
// ranges. Order is irrelevant for correctness and
// duplicates are harmless; no dedup is performed.
type Set struct {
	Keys   []Key
	Ranges []Range
}

// Append adds a single key to the set.
func (s *Set) Append(k Key) {
	s.Keys = append(s.Keys, k)
}

// AppendRange adds a range to the set.
func (s *Set) AppendRange(r Range) {
	s.Ranges = append(s.Ranges, r)
}

// Intersect returns a new set containing the loose keys
// of s that r contains and the intersection of each of
// s's ranges with r, discarding empty intersections.
// The read resume path uses this to shrink the remaining
// key space to everything not yet confirmed committed.
func (s Set) Intersect(r Range) Set {
	var intersection Set

	for _, k := range s.Keys {
		if r.Contains(k) {
			intersection.Append(k)
		}
	}

	for _, sr := range s.Ranges {
		if ir, ok := sr.Intersect(r); ok {
			intersection.AppendRange(ir)
		}
	}

	return intersection
}

// IsEmpty returns true if the set contains no keys and
// no non-empty ranges.
func (s Set) IsEmpty() bool {
	if len(s.Keys) > 0 {
		return false
	}

	for _, r := range s.Ranges {
		if !r.IsEmpty() {
			return false
		}
	}

	return true
}

// Contains returns true if k is one of the set's loose
// keys or falls inside one of its ranges.
func (s Set) Contains(k Key) bool {
	for _, key := range s.Keys {
		if Compare(key, k) == 0 {
			return true
		}
	}

	for _, r := range s.Ranges {
		if r.Contains(k) {
			return true
		}
	}

	return false
}
