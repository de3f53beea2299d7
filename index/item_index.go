// Package index implements the featstore query engine: the in-memory item
// index, the builder that extends it on writes, the codecs for the three
// on-disk layout eras, and the resolver that turns item/time bounds into
// frame offsets.
package index

import (
	"fmt"

	"github.com/arloliu/featstore/errs"
)

// ItemIndex is the in-memory mapping from item names to cumulative frame
// offsets in the concatenated frame store.
//
// names[i] is the name of the i-th item in insertion order, and offsets[i]
// is the inclusive, 0-based offset of that item's last frame. Offsets are
// non-decreasing; offsets[i] == offsets[i-1] only for an item that
// contributed zero frames.
//
// Item names are not required to be globally unique; lookups resolve to the
// first matching position. The structure is append-only and all methods are
// pure lookups.
type ItemIndex struct {
	names   []string
	offsets []int64
}

// NewItemIndex creates an ItemIndex from parallel name and offset slices.
// Both slices are retained, not copied. Returns errs.ErrFormat if the
// lengths differ or the offsets are not non-decreasing.
func NewItemIndex(names []string, offsets []int64) (*ItemIndex, error) {
	if len(names) != len(offsets) {
		return nil, fmt.Errorf("%w: %d item names but %d index entries", errs.ErrFormat, len(names), len(offsets))
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("%w: cumulative index decreases at entry %d (%d < %d)",
				errs.ErrFormat, i, offsets[i], offsets[i-1])
		}
	}

	return &ItemIndex{names: names, offsets: offsets}, nil
}

// Len returns the number of items.
func (x *ItemIndex) Len() int {
	return len(x.names)
}

// FrameCount returns the total number of frames covered by the index.
func (x *ItemIndex) FrameCount() int64 {
	if len(x.offsets) == 0 {
		return 0
	}

	return x.offsets[len(x.offsets)-1] + 1
}

// Names returns the item names in insertion order.
// The returned slice is cloned to prevent external modification.
func (x *ItemIndex) Names() []string {
	out := make([]string, len(x.names))
	copy(out, x.names)

	return out
}

// Offsets returns the cumulative end offsets in insertion order.
// The returned slice is cloned to prevent external modification.
func (x *ItemIndex) Offsets() []int64 {
	out := make([]int64, len(x.offsets))
	copy(out, x.offsets)

	return out
}

// Name returns the item name at the given position.
func (x *ItemIndex) Name(pos int) string {
	return x.names[pos]
}

// PositionOf returns the position of the first item with the given name.
// Returns errs.ErrItemNotFound if no item has that name.
func (x *ItemIndex) PositionOf(name string) (int, error) {
	for i, n := range x.names {
		if n == name {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", errs.ErrItemNotFound, name)
}

// FrameRange returns the inclusive [start, end] frame offsets of the item at
// the given position. An item with zero frames yields end == start-1.
func (x *ItemIndex) FrameRange(pos int) (start, end int64) {
	if pos == 0 {
		return 0, x.offsets[0]
	}

	return x.offsets[pos-1] + 1, x.offsets[pos]
}
