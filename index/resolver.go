package index

import (
	"fmt"
	"sort"

	"github.com/arloliu/featstore/errs"
)

// Query selects a contiguous run of items, optionally narrowed in time at
// both ends.
//
// An empty FromItem defaults to the first item. An empty ToItem defaults to
// FromItem when that is set, otherwise to the last item. Time bounds apply
// only within the first and last item of the selected run, never across
// interior items, and are inclusive of frames whose time equals the bound.
type Query struct {
	FromItem string
	ToItem   string
	FromTime float64
	ToTime   float64

	// HasFromTime and HasToTime report whether the corresponding time bound
	// is present; the zero value of a float64 is a valid timestamp.
	HasFromTime bool
	HasToTime   bool
}

// Range is a resolved query: an inclusive frame range plus the information
// needed to split the sliced frames back into per-item sub-sequences.
type Range struct {
	// Start and End are the inclusive frame offsets of the selected range.
	Start int64
	End   int64

	// FirstItem and LastItem are the positions of the items bounding the
	// range.
	FirstItem int
	LastItem  int

	// Splits holds the interior item boundaries for multi-item ranges: the
	// cumulative index values strictly between FirstItem and LastItem,
	// re-based by subtracting the first item's start offset. Each value is
	// the inclusive end offset of one covered item; a range of n covered
	// items carries n-1 splits. Empty when the range covers a single item.
	Splits []int64
}

// Resolve computes the frame range selected by a query over the given index
// and its per-frame time array.
//
// times must be 1:1 aligned with the concatenated frame store and
// non-decreasing within each item's sub-range. Resolve performs no I/O; the
// time scans are binary searches bounded to the first and last item of the
// range.
//
// Returns errs.ErrItemNotFound for an unknown item name and
// errs.ErrInvalidRange when the items are inverted or a time bound falls
// outside its item's time span.
func Resolve(x *ItemIndex, times []float64, q Query) (Range, error) {
	if x.Len() == 0 {
		return Range{}, fmt.Errorf("%w: index is empty", errs.ErrInvalidRange)
	}

	fromItem, toItem := q.FromItem, q.ToItem
	if toItem == "" {
		if fromItem != "" {
			toItem = fromItem
		} else {
			toItem = x.Name(x.Len() - 1)
		}
	}
	if fromItem == "" {
		fromItem = x.Name(0)
	}

	p1, err := x.PositionOf(fromItem)
	if err != nil {
		return Range{}, err
	}
	p2, err := x.PositionOf(toItem)
	if err != nil {
		return Range{}, err
	}
	if p2 < p1 {
		return Range{}, fmt.Errorf("%w: item %q is located after item %q", errs.ErrInvalidRange, fromItem, toItem)
	}

	s1, e1 := x.FrameRange(p1)
	s2, e2 := x.FrameRange(p2)

	i1 := s1
	if q.HasFromTime {
		i1, err = firstAtOrAfter(times, s1, e1, q.FromTime)
		if err != nil {
			return Range{}, fmt.Errorf("%w: from_time %v is larger than the biggest time in item %q",
				err, q.FromTime, fromItem)
		}
	}

	i2 := e2
	if q.HasToTime {
		i2, err = lastAtOrBefore(times, s2, e2, q.ToTime)
		if err != nil {
			return Range{}, fmt.Errorf("%w: to_time %v is smaller than the smallest time in item %q",
				err, q.ToTime, toItem)
		}
	}

	if i2 < i1 {
		return Range{}, fmt.Errorf("%w: time bounds [%v, %v] select no frames", errs.ErrInvalidRange, q.FromTime, q.ToTime)
	}

	r := Range{Start: i1, End: i2, FirstItem: p1, LastItem: p2}
	if p2 > p1 {
		r.Splits = make([]int64, 0, p2-p1)
		for p := p1; p < p2; p++ {
			r.Splits = append(r.Splits, x.offsets[p]-s1)
		}
	}

	return r, nil
}

// firstAtOrAfter returns the offset of the first frame in the inclusive
// range [start, end] whose time is >= bound.
func firstAtOrAfter(times []float64, start, end int64, bound float64) (int64, error) {
	n := int(end - start + 1)
	i := sort.Search(n, func(k int) bool {
		return times[start+int64(k)] >= bound
	})
	if i == n {
		return 0, errs.ErrInvalidRange
	}

	return start + int64(i), nil
}

// lastAtOrBefore returns the offset of the last frame in the inclusive
// range [start, end] whose time is <= bound.
func lastAtOrBefore(times []float64, start, end int64, bound float64) (int64, error) {
	n := int(end - start + 1)
	i := sort.Search(n, func(k int) bool {
		return times[start+int64(k)] > bound
	})
	if i == 0 {
		return 0, errs.ErrInvalidRange
	}

	return start + int64(i) - 1, nil
}
