package rowkey_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jrife/kestrel/rowkey"
)

func TestSetIntersect(t *testing.T) {
	var set rowkey.Set

	set.Append(rowkey.Key("apple"))
	set.Append(rowkey.Key("melon"))
	set.Append(rowkey.Key("zebra"))
	set.AppendRange(rowkey.ClosedOpen(rowkey.Key("a"), rowkey.Key("f")))
	set.AppendRange(rowkey.ClosedOpen(rowkey.Key("t"), rowkey.Key("w")))

	// shrink to everything after "melon", the way the read
	// resume path does after a committed row
	shrunk := set.Intersect(rowkey.StartingAt(rowkey.Open(rowkey.Key("melon"))))

	expected := rowkey.Set{
		Keys: []rowkey.Key{rowkey.Key("zebra")},
		Ranges: []rowkey.Range{
			{Start: rowkey.Closed(rowkey.Key("t")), End: rowkey.Open(rowkey.Key("w"))},
		},
	}

	if diff := cmp.Diff(expected, shrunk); diff != "" {
		t.Fatalf("shrunk set differs (-want +got):\n%s", diff)
	}
}

func TestSetIntersectPartialOverlap(t *testing.T) {
	var set rowkey.Set

	set.AppendRange(rowkey.ClosedOpen(rowkey.Key("a"), rowkey.Key("z")))

	shrunk := set.Intersect(rowkey.StartingAt(rowkey.Open(rowkey.Key("m"))))

	expected := rowkey.Set{
		Ranges: []rowkey.Range{
			{Start: rowkey.Open(rowkey.Key("m")), End: rowkey.Open(rowkey.Key("z"))},
		},
	}

	if diff := cmp.Diff(expected, shrunk); diff != "" {
		t.Fatalf("shrunk set differs (-want +got):\n%s", diff)
	}
}

func TestSetIsEmpty(t *testing.T) {
	var set rowkey.Set

	if !set.IsEmpty() {
		t.Fatalf("expected zero-value set to be empty")
	}

	set.AppendRange(rowkey.ClosedOpen(rowkey.Key("b"), rowkey.Key("b")))

	if !set.IsEmpty() {
		t.Fatalf("expected set holding only an empty range to be empty")
	}

	set.Append(rowkey.Key("a"))

	if set.IsEmpty() {
		t.Fatalf("expected set holding a key to be non-empty")
	}
}

func TestSetContains(t *testing.T) {
	var set rowkey.Set

	set.Append(rowkey.Key("loose"))
	set.AppendRange(rowkey.ClosedOpen(rowkey.Key("m"), rowkey.Key("p")))

	for _, k := range []rowkey.Key{rowkey.Key("loose"), rowkey.Key("m"), rowkey.Key("onion")} {
		if !set.Contains(k) {
			t.Fatalf("expected set to contain %s", k)
		}
	}

	for _, k := range []rowkey.Key{rowkey.Key("a"), rowkey.Key("p"), rowkey.Key("z")} {
		if set.Contains(k) {
			t.Fatalf("expected set not to contain %s", k)
		}
	}
}
