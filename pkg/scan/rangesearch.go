package scan

import (
	"bytes"

	"github.com/kvscan/rangescan/pkg/table"
)

// lowerBound returns the first index i such that keyOf(items[i]) >=
// target, or len(items) if no such index exists.
func lowerBound[T any](items []T, keyOf func(T) table.Key, target table.Key) int {
	lo, hi := 0, len(items)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(keyOf(items[mid]), target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// upperBound returns the first index i such that keyOf(items[i]) > target,
// or len(items) if no such index exists.
func upperBound[T any](items []T, keyOf func(T) table.Key, target table.Key) int {
	lo, hi := 0, len(items)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(keyOf(items[mid]), target) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// RangeIn returns the maximal contiguous (start, count) such that every
// item in items[start:start+count] compares >= keyMin and <= keyMax,
// branch-lightly and without panicking on an empty slice. Used for
// memtable cursors and for restricting a loaded data block to the scan
// range.
func RangeIn[T any](items []T, keyOf func(T) table.Key, keyMin, keyMax table.Key) (start, count int) {
	n := len(items)
	if n == 0 {
		return 0, 0
	}
	start = lowerBound(items, keyOf, keyMin)
	if start >= n {
		return start, 0
	}
	end := upperBound(items, keyOf, keyMax)
	if end <= start {
		return start, 0
	}
	return start, end - start
}

// IndexRangeIn implements the range-refinement policy over index-block
// boundary keys: boundaries[i] is the maximum key of the i-th
// data block. It selects the contiguous [a, b] such that a is the first
// entry whose boundary key is >= keyMin (the first data block that might
// contain keyMin) and b is the first entry whose boundary key is >=
// keyMax, bounded at the last entry (the last data block that might
// contain keyMax). If every boundary is < keyMin, or keyMin is past the
// last boundary, nothing is selected.
func IndexRangeIn(boundaries []table.Key, keyMin, keyMax table.Key) (start, count int) {
	n := len(boundaries)
	if n == 0 {
		return 0, 0
	}
	identity := func(k table.Key) table.Key { return k }

	a := lowerBound(boundaries, identity, keyMin)
	if a >= n {
		return a, 0
	}
	b := lowerBound(boundaries, identity, keyMax)
	if b >= n {
		b = n - 1
	}
	if b < a {
		return a, 0
	}
	return a, b - a + 1
}
