package index

import (
	"fmt"

	"github.com/arloliu/featstore/errs"
)

// BuildResult describes how a write extends the persisted cumulative index.
//
// Offsets holds the cumulative end offset of each newly written item, as a
// prefix sum starting from the last persisted offset. ReplaceLast reports
// that the first value in Offsets overwrites the current last index slot
// rather than appending a new one: the write continued the most recently
// written item instead of starting a new one.
type BuildResult struct {
	Offsets     []int64
	ReplaceLast bool
}

// Extend computes the index extension for a sequence of newly written items.
//
// offsets is the current cumulative index (possibly empty) and counts holds
// the frame count of each new item in write order. The first new item's end
// offset is last+counts[0], the second last+counts[0]+counts[1], and so on,
// where last is the final existing offset, or -1 for an empty index.
//
// When continueLast is set, the first new item extends the most recently
// written item: its offset replaces the current last slot instead of
// occupying a fresh one, and only the remaining items append new slots.
//
// Returns errs.ErrInconsistentState if continueLast is set on an empty
// index.
func Extend(offsets []int64, counts []int64, continueLast bool) (BuildResult, error) {
	if continueLast && len(offsets) == 0 {
		return BuildResult{}, fmt.Errorf("%w: continuation write with no item to continue", errs.ErrInconsistentState)
	}

	last := int64(-1)
	if len(offsets) > 0 {
		last = offsets[len(offsets)-1]
	}

	out := make([]int64, len(counts))
	for i, c := range counts {
		last += c
		out[i] = last
	}

	return BuildResult{Offsets: out, ReplaceLast: continueLast}, nil
}

// Extend applies a write of newly named items to the in-memory index and
// returns the same BuildResult that must be persisted.
//
// names holds one name per count. On a continuation the first name must
// equal the current last item name; it is merged into the existing slot and
// not appended.
func (x *ItemIndex) Extend(names []string, counts []int64, continueLast bool) (BuildResult, error) {
	if len(names) != len(counts) {
		return BuildResult{}, fmt.Errorf("%w: %d names for %d frame counts", errs.ErrInvalidItem, len(names), len(counts))
	}

	res, err := Extend(x.offsets, counts, continueLast)
	if err != nil {
		return BuildResult{}, err
	}

	if continueLast {
		if got, want := names[0], x.names[len(x.names)-1]; got != want {
			return BuildResult{}, fmt.Errorf("%w: continuation item %q does not match last item %q",
				errs.ErrInconsistentState, got, want)
		}
		x.offsets = x.offsets[:len(x.offsets)-1]
		names = names[1:]
	}

	x.offsets = append(x.offsets, res.Offsets...)
	x.names = append(x.names, names...)

	return res, nil
}
