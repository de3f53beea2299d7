package featstore

import (
	"fmt"

	"github.com/arloliu/featstore/errs"
)

// Item is one named sequence of feature frames to write.
//
// Times holds one timestamp per frame and must be non-decreasing; Features
// holds one fixed-width vector per frame. An item with zero frames is
// degenerate but representable.
type Item struct {
	Name     string
	Times    []float64
	Features [][]float64
}

// validate checks one item against the expected feature dim. A dim of 0
// means not yet known; the item's own width is returned so the caller can
// pin it.
func (it Item) validate(dim int) (int, error) {
	if it.Name == "" {
		return 0, fmt.Errorf("%w: empty item name", errs.ErrInvalidItem)
	}
	if len(it.Times) != len(it.Features) {
		return 0, fmt.Errorf("%w: item %q has %d times for %d frames",
			errs.ErrInvalidItem, it.Name, len(it.Times), len(it.Features))
	}

	for i := 1; i < len(it.Times); i++ {
		if it.Times[i] < it.Times[i-1] {
			return 0, fmt.Errorf("%w: item %q times decrease at frame %d", errs.ErrInvalidItem, it.Name, i)
		}
	}

	for i, f := range it.Features {
		if dim == 0 {
			dim = len(f)
		}
		if len(f) != dim || dim == 0 {
			return 0, fmt.Errorf("%w: item %q frame %d has dim %d, expected %d",
				errs.ErrInvalidItem, it.Name, i, len(f), dim)
		}
	}

	return dim, nil
}

// ItemData is one item's slice of a read result.
//
// Times and Features cover only the frames selected by the query; an item
// fully outside a narrowing time bound yields empty slices.
type ItemData struct {
	Item     string
	Times    []float64
	Features [][]float64
}
