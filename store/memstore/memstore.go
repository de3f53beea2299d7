// Package memstore implements the store contract in memory.
//
// It is intended for tests and for ephemeral stores that never touch disk;
// it trades durability for simplicity and holds every dataset fully in
// memory. Like fsstore it provides no locking; callers must serialize
// access.
package memstore

import (
	"fmt"

	"github.com/arloliu/featstore/errs"
	"github.com/arloliu/featstore/store"
)

// Group is an in-memory container of datasets.
type Group struct {
	name     string
	attrs    map[string]any
	datasets map[string]*Dataset
}

var _ store.Group = (*Group)(nil)

// NewGroup creates an empty in-memory group.
func NewGroup(name string) *Group {
	return &Group{
		name:     name,
		attrs:    make(map[string]any),
		datasets: make(map[string]*Dataset),
	}
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// Attr returns a scalar attribute value.
func (g *Group) Attr(key string) (any, bool) {
	v, ok := g.attrs[key]
	return v, ok
}

// SetAttr sets a scalar attribute value.
func (g *Group) SetAttr(key string, value any) error {
	g.attrs[key] = value
	return nil
}

// HasDataset reports whether a dataset with the given name exists.
func (g *Group) HasDataset(name string) bool {
	_, ok := g.datasets[name]
	return ok
}

// Dataset returns an existing dataset.
func (g *Group) Dataset(name string) (store.Dataset, error) {
	ds, ok := g.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in group %q", errs.ErrDatasetNotFound, name, g.name)
	}

	return ds, nil
}

// CreateDataset creates a new empty dataset.
func (g *Group) CreateDataset(name string, dtype store.DType, width int) (store.Dataset, error) {
	if g.HasDataset(name) {
		return nil, fmt.Errorf("dataset %q already exists in group %q", name, g.name)
	}

	switch dtype {
	case store.Int64:
		width = 1
	case store.Float64:
		if width < 1 {
			return nil, fmt.Errorf("float64 dataset %q must have width >= 1, got %d", name, width)
		}
	case store.String:
		width = 0
	default:
		return nil, fmt.Errorf("invalid dtype for dataset %q: %v", name, dtype)
	}

	ds := &Dataset{name: name, dtype: dtype, width: width}
	g.datasets[name] = ds

	return ds, nil
}

// Flush is a no-op; there is nothing to persist.
func (g *Group) Flush() error {
	return nil
}

// Dataset is an in-memory typed array.
type Dataset struct {
	name  string
	dtype store.DType
	width int

	ints    []int64
	floats  []float64
	strings []string
}

var _ store.Dataset = (*Dataset)(nil)

// Name returns the dataset name.
func (d *Dataset) Name() string {
	return d.name
}

// DType returns the element type.
func (d *Dataset) DType() store.DType {
	return d.dtype
}

// Width returns the number of columns per row (0 for String datasets).
func (d *Dataset) Width() int {
	return d.width
}

// Rows returns the current number of rows.
func (d *Dataset) Rows() int64 {
	switch d.dtype {
	case store.Int64:
		return int64(len(d.ints))
	case store.Float64:
		return int64(len(d.floats) / d.width)
	default:
		return int64(len(d.strings))
	}
}

// Truncate discards all rows at index >= rows.
func (d *Dataset) Truncate(rows int64) error {
	if rows < 0 || rows > d.Rows() {
		return fmt.Errorf("cannot truncate dataset %q to %d rows, have %d", d.name, rows, d.Rows())
	}

	switch d.dtype {
	case store.Int64:
		d.ints = d.ints[:rows]
	case store.Float64:
		d.floats = d.floats[:rows*int64(d.width)]
	default:
		d.strings = d.strings[:rows]
	}

	return nil
}

// AppendInt64 appends values to an Int64 dataset.
func (d *Dataset) AppendInt64(vals []int64) error {
	if d.dtype != store.Int64 {
		return fmt.Errorf("%w: dataset %q is %s, not Int64", errs.ErrDTypeMismatch, d.name, d.dtype)
	}
	d.ints = append(d.ints, vals...)

	return nil
}

// AppendFloat64 appends rows to a Float64 dataset.
func (d *Dataset) AppendFloat64(vals []float64) error {
	if d.dtype != store.Float64 {
		return fmt.Errorf("%w: dataset %q is %s, not Float64", errs.ErrDTypeMismatch, d.name, d.dtype)
	}
	if len(vals)%d.width != 0 {
		return fmt.Errorf("%w: %d values do not fill rows of width %d", errs.ErrDTypeMismatch, len(vals), d.width)
	}
	d.floats = append(d.floats, vals...)

	return nil
}

// AppendStrings appends values to a String dataset.
func (d *Dataset) AppendStrings(vals []string) error {
	if d.dtype != store.String {
		return fmt.Errorf("%w: dataset %q is %s, not String", errs.ErrDTypeMismatch, d.name, d.dtype)
	}
	d.strings = append(d.strings, vals...)

	return nil
}

// ReadInt64 reads rows [start, end) from an Int64 dataset.
func (d *Dataset) ReadInt64(start, end int64) ([]int64, error) {
	if err := d.checkRead(store.Int64, start, end); err != nil {
		return nil, err
	}

	out := make([]int64, end-start)
	copy(out, d.ints[start:end])

	return out, nil
}

// ReadFloat64 reads rows [start, end) from a Float64 dataset, returned flat
// in row-major order.
func (d *Dataset) ReadFloat64(start, end int64) ([]float64, error) {
	if err := d.checkRead(store.Float64, start, end); err != nil {
		return nil, err
	}

	w := int64(d.width)
	out := make([]float64, (end-start)*w)
	copy(out, d.floats[start*w:end*w])

	return out, nil
}

// ReadStrings reads rows [start, end) from a String dataset.
func (d *Dataset) ReadStrings(start, end int64) ([]string, error) {
	if err := d.checkRead(store.String, start, end); err != nil {
		return nil, err
	}

	out := make([]string, end-start)
	copy(out, d.strings[start:end])

	return out, nil
}

func (d *Dataset) checkRead(want store.DType, start, end int64) error {
	if d.dtype != want {
		return fmt.Errorf("%w: dataset %q is %s, not %s", errs.ErrDTypeMismatch, d.name, d.dtype, want)
	}
	if start < 0 || end < start || end > d.Rows() {
		return fmt.Errorf("row range [%d, %d) out of bounds for dataset %q with %d rows", start, end, d.name, d.Rows())
	}

	return nil
}
