// Package store defines the array-store contract the index engine is built
// against: named groups of typed, resizable datasets with scalar attribute
// metadata.
//
// Two implementations ship with featstore: store/fsstore (directory-backed,
// chunked, compressed) and store/memstore (in-memory, for tests and ephemeral
// use). Any other backend satisfying these interfaces works as well.
//
// Row ranges at this layer are half-open [start, end). The index engine works
// in inclusive frame ranges and translates when calling down.
//
// Concurrency: implementations are not required to be safe for concurrent
// use, and none of the shipped ones are. Callers must serialize all access to
// a store, one writer at a time with readers excluded during writes. This
// mirrors the guarantees of the underlying filesystem operations, which are
// not atomic across processes either.
package store

import (
	"fmt"

	"github.com/arloliu/featstore/errs"
)

// DType identifies the element type of a dataset.
type DType uint8

const (
	Int64   DType = 0x1 // Int64 is a 1-D dataset of signed 64-bit integers.
	Float64 DType = 0x2 // Float64 is a 1-D or 2-D dataset of 64-bit floats.
	String  DType = 0x3 // String is a 1-D dataset of variable-length strings.
)

func (d DType) String() string {
	switch d {
	case Int64:
		return "Int64"
	case Float64:
		return "Float64"
	case String:
		return "String"
	default:
		return "Unknown"
	}
}

// Group is a named container of datasets with scalar key/value attributes.
type Group interface {
	// Name returns the group name.
	Name() string

	// HasDataset reports whether a dataset with the given name exists.
	HasDataset(name string) bool

	// Dataset returns an existing dataset.
	// Returns errs.ErrDatasetNotFound if the name is absent.
	Dataset(name string) (Dataset, error)

	// CreateDataset creates an empty dataset. The width is the number of
	// columns per row: 1 for scalar datasets, >1 for 2-D Float64 datasets,
	// and ignored for String datasets.
	CreateDataset(name string, dtype DType, width int) (Dataset, error)

	// Attr returns a scalar attribute value. Numeric attributes may be
	// reported as int64 or float64 depending on the backend; use the
	// StringAttr and IntAttr helpers for lenient access.
	Attr(key string) (any, bool)

	// SetAttr sets a scalar attribute value.
	SetAttr(key string, value any) error

	// Flush persists all pending state of the group and its datasets.
	Flush() error
}

// Dataset is a single typed, resizable array of rows.
type Dataset interface {
	// Name returns the dataset name.
	Name() string

	// DType returns the element type.
	DType() DType

	// Width returns the number of columns per row.
	Width() int

	// Rows returns the current number of rows.
	Rows() int64

	// Truncate discards all rows at index >= rows.
	Truncate(rows int64) error

	// AppendInt64 appends values to an Int64 dataset.
	AppendInt64(vals []int64) error

	// AppendFloat64 appends rows to a Float64 dataset. The length of vals
	// must be a multiple of the dataset width.
	AppendFloat64(vals []float64) error

	// AppendStrings appends values to a String dataset.
	AppendStrings(vals []string) error

	// ReadInt64 reads rows [start, end) from an Int64 dataset.
	ReadInt64(start, end int64) ([]int64, error)

	// ReadFloat64 reads rows [start, end) from a Float64 dataset, returned
	// flat in row-major order (len == (end-start)*Width()).
	ReadFloat64(start, end int64) ([]float64, error)

	// ReadStrings reads rows [start, end) from a String dataset.
	ReadStrings(start, end int64) ([]string, error)
}

// StringAttr returns the attribute value as a string.
// Returns errs.ErrFormat if the attribute is absent or not a string.
func StringAttr(g Group, key string) (string, error) {
	v, ok := g.Attr(key)
	if !ok {
		return "", fmt.Errorf("%w: missing attribute %q in group %q", errs.ErrFormat, key, g.Name())
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: attribute %q in group %q is %T, not string", errs.ErrFormat, key, g.Name(), v)
	}

	return s, nil
}

// IntAttr returns the attribute value as an int64, accepting any numeric
// representation the backend reports.
// Returns errs.ErrFormat if the attribute is absent or not numeric.
func IntAttr(g Group, key string) (int64, error) {
	v, ok := g.Attr(key)
	if !ok {
		return 0, fmt.Errorf("%w: missing attribute %q in group %q", errs.ErrFormat, key, g.Name())
	}

	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: attribute %q in group %q is %T, not numeric", errs.ErrFormat, key, g.Name(), v)
	}
}
