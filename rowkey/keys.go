package rowkey

import (
	"bytes"
	"fmt"
	"unicode"
)

// Key is a single row key. Keys are compared
// lexicographically as unsigned byte sequences.
type Key []byte

// Compare compares two keys
// -1 means a < b
// 1 means a > b
// 0 means a = b
func Compare(a, b Key) int {
	return bytes.Compare(a, b)
}

// Clone returns a copy of the key that shares
// no storage with the original.
func (k Key) Clone() Key {
	if k == nil {
		return nil
	}

	return append(Key(nil), k...)
}

// String formats the key for log fields. Printable
// keys are shown as-is, anything else as a quoted
// escape sequence.
func (k Key) String() string {
	for _, b := range k {
		if b > unicode.MaxASCII || !unicode.IsPrint(rune(b)) {
			return fmt.Sprintf("%q", []byte(k))
		}
	}

	return string(k)
}

// Next returns the key directly after k such that
// there can exist no other key that comes between
// k and Next(k).
func Next(k Key) Key {
	next := make(Key, len(k)+1)

	copy(next, k)
	next[len(k)] = 0

	return next
}

// Inc treats k as a big-endian unsigned integer
// and adds 1 to it.
func Inc(k Key) Key {
	carry := true
	after := make(Key, len(k))

	copy(after, k)

	for i := len(after) - 1; i >= 0 && carry; i-- {
		if k[i] < 0xff {
			carry = false
		}

		after[i] = k[i] + 1
	}

	// carry will only be true if all elements of k
	// were equal to 0xff. The range should just go
	// all the way to the end of the real key range.
	if carry {
		return nil
	}

	return after
}
