// Package order assigns and maintains positions for sortable categories.
// Positions are gapped integers: new lists are seeded at a fixed stride and
// single-item moves take the midpoint between neighbors, so a move rewrites
// one row instead of the whole list.
package order

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jacentio/lattice/entry"
)

// Stride is the gap between freshly assigned positions. The first seeded
// position is Stride itself, leaving room below for moves to the front.
const Stride int64 = 1000

// ErrRenumberRequired is returned when no integer exists strictly between
// two adjacent positions. The caller must renumber the category and retry
// the move.
var ErrRenumberRequired = errors.New("lattice: position gap exhausted, renumber required")

// Seed returns n positions at stride spacing for a freshly built list:
// Stride, 2*Stride, 3*Stride, and so on.
func Seed(n int) []int64 {
	positions := make([]int64, n)
	for i := range positions {
		positions[i] = int64(i+1) * Stride
	}
	return positions
}

// Next returns the position for an item appended after last. Next(0) is
// the first position of an empty list.
func Next(last int64) int64 {
	return last + Stride
}

// Between returns a position strictly between lo and hi. lo may be
// entry.PositionUnordered (zero) to place before the first item. Returns
// ErrRenumberRequired when the gap is exhausted.
func Between(lo, hi int64) (int64, error) {
	if lo >= hi {
		return 0, fmt.Errorf("lattice: invalid position bounds [%d, %d]", lo, hi)
	}
	mid := lo + (hi-lo)/2
	if mid == lo {
		return 0, fmt.Errorf("no room between %d and %d: %w", lo, hi, ErrRenumberRequired)
	}
	return mid, nil
}

// Renumber returns the entries with fresh stride-spaced positions,
// preserving their current relative order (position, then key). Versions
// and values are untouched; persisting the result is the caller's job.
func Renumber(entries []entry.Entry) []entry.Entry {
	out := slices.Clone(entries)
	slices.SortFunc(out, entry.Compare)
	for i := range out {
		out[i].Position = int64(i+1) * Stride
	}
	return out
}
