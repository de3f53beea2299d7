// Package errs defines the sentinel errors shared across featstore packages.
//
// Callers match them with errors.Is; call sites wrap them with
// fmt.Errorf("%w: ...") to add context.
package errs

import "errors"

var (
	// ErrFormat indicates a malformed or incomplete on-disk structure, such
	// as a required dataset or attribute missing from a group.
	ErrFormat = errors.New("malformed store format")

	// ErrUnsupportedVersion indicates a version marker that does not map to
	// any known on-disk layout.
	ErrUnsupportedVersion = errors.New("unsupported store version")

	// ErrItemNotFound indicates an item name absent from the index.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidRange indicates an inverted item range or a time bound that
	// falls outside the time span of its item.
	ErrInvalidRange = errors.New("invalid range")

	// ErrInconsistentState indicates a continuation write against an empty
	// index: there is no previous item to continue.
	ErrInconsistentState = errors.New("inconsistent index state")

	// ErrSparseUnsupported indicates an operation on sparse-format features.
	// The sparse layout is detected and its side arrays are preserved, but
	// encoding and decoding sparse frames is not implemented.
	ErrSparseUnsupported = errors.New("sparse format not supported")

	// ErrInvalidItem indicates item data rejected by write validation, such
	// as mismatched times/features lengths or an inconsistent feature dim.
	ErrInvalidItem = errors.New("invalid item data")

	// ErrDatasetNotFound indicates a dataset name absent from a group.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrDTypeMismatch indicates a typed dataset access with the wrong
	// element type.
	ErrDTypeMismatch = errors.New("dataset dtype mismatch")

	// ErrChecksumMismatch indicates a chunk whose stored checksum does not
	// match its content, i.e. on-disk corruption.
	ErrChecksumMismatch = errors.New("chunk checksum mismatch")

	// ErrReadOnly indicates a mutation attempted on a store opened read-only.
	ErrReadOnly = errors.New("store is read-only")

	// ErrInvalidStore indicates a path that is not a valid featstore
	// container.
	ErrInvalidStore = errors.New("not a valid featstore container")
)
