package featstore

import (
	"fmt"

	"github.com/arloliu/featstore/errs"
	"github.com/arloliu/featstore/format"
	"github.com/arloliu/featstore/index"
	"github.com/arloliu/featstore/internal/options"
	"github.com/arloliu/featstore/store"
	"github.com/arloliu/featstore/store/fsstore"
)

// Reader is a read session on one group. It probes the group's layout era at
// open time, loads the full index snapshot once, and resolves every query
// against that immutable snapshot.
type Reader struct {
	fs    *fsstore.Store
	group store.Group
	snap  *index.Snapshot
}

// ReadOption narrows a Read call to a sub-range of items and times.
type ReadOption = options.Option[*index.Query]

// FromItem starts the result at the given item instead of the first one.
func FromItem(name string) ReadOption {
	return options.NoError(func(q *index.Query) {
		q.FromItem = name
	})
}

// ToItem ends the result at the given item. When only FromItem is set, the
// result covers that single item.
func ToItem(name string) ReadOption {
	return options.NoError(func(q *index.Query) {
		q.ToItem = name
	})
}

// FromTime drops leading frames of the first item whose time is below t.
// Frames with time exactly t are included.
func FromTime(t float64) ReadOption {
	return options.NoError(func(q *index.Query) {
		q.FromTime = t
		q.HasFromTime = true
	})
}

// ToTime drops trailing frames of the last item whose time is above t.
// Frames with time exactly t are included.
func ToTime(t float64) ReadOption {
	return options.NoError(func(q *index.Query) {
		q.ToTime = t
		q.HasToTime = true
	})
}

// OpenReader opens a read session on a store directory.
// Returns errs.ErrInvalidStore if the path is not a featstore container and
// errs.ErrFormat if the group does not exist.
func OpenReader(path, group string) (*Reader, error) {
	fs, err := fsstore.Open(path, fsstore.WithReadOnly())
	if err != nil {
		return nil, err
	}

	g, err := fs.Group(group)
	if err != nil {
		fs.Close()
		return nil, err
	}

	r, err := NewReader(g)
	if err != nil {
		fs.Close()
		return nil, err
	}
	r.fs = fs

	return r, nil
}

// NewReader opens a read session over any store.Group implementation. The
// caller keeps ownership of the backing store.
func NewReader(g store.Group) (*Reader, error) {
	version, err := index.ProbeVersion(g)
	if err != nil {
		return nil, err
	}
	codec, err := index.ForVersion(version)
	if err != nil {
		return nil, err
	}

	snap, err := codec.Read(g)
	if err != nil {
		return nil, err
	}

	return &Reader{group: g, snap: snap}, nil
}

// Version returns the layout era of the group.
func (r *Reader) Version() format.VersionTag {
	return r.snap.Version
}

// Format returns the frame layout of the group.
func (r *Reader) Format() format.FormatTag {
	return r.snap.Format
}

// Items returns the item names in insertion order.
func (r *Reader) Items() []string {
	return r.snap.Items.Names()
}

// FrameCount returns the total number of frames in the group.
func (r *Reader) FrameCount() int64 {
	return r.snap.Items.FrameCount()
}

// Read resolves the query and returns the selected frames, one ItemData per
// covered item in index order.
//
// Returns errs.ErrItemNotFound for unknown item names, errs.ErrInvalidRange
// for inverted item ranges or out-of-span time bounds, and
// errs.ErrSparseUnsupported for sparse-format groups.
func (r *Reader) Read(opts ...ReadOption) ([]ItemData, error) {
	if r.snap.Format == format.FormatSparse {
		return nil, fmt.Errorf("%w: reading sparse features is not implemented", errs.ErrSparseUnsupported)
	}

	var q index.Query
	if err := options.Apply(&q, opts...); err != nil {
		return nil, err
	}

	rng, err := index.Resolve(r.snap.Items, r.snap.Times, q)
	if err != nil {
		return nil, err
	}

	times := r.snap.Times[rng.Start : rng.End+1]
	features, err := r.readFeatureRows(rng.Start, rng.End)
	if err != nil {
		return nil, err
	}

	return r.splitItems(rng, times, features), nil
}

// readFeatureRows returns one feature vector per frame in the inclusive
// range [start, end].
func (r *Reader) readFeatureRows(start, end int64) ([][]float64, error) {
	ds, err := r.group.Dataset(featuresKey)
	if err != nil {
		return nil, fmt.Errorf("%w: dataset %q: %w", errs.ErrFormat, featuresKey, err)
	}

	if r.snap.Version == format.VersionLegacy {
		return r.readLegacyFeatureRows(ds, start, end)
	}

	dim := ds.Width()
	flat, err := ds.ReadFloat64(start, end+1)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, end-start+1)
	for i := range out {
		out[i] = flat[i*dim : (i+1)*dim]
	}

	return out, nil
}

// readLegacyFeatureRows handles the transposed legacy layout, which stores
// one dataset row per feature dimension with one column per frame. Columns
// cannot be sliced, so the rows are read in full and the requested frame
// columns extracted afterwards.
func (r *Reader) readLegacyFeatureRows(ds store.Dataset, start, end int64) ([][]float64, error) {
	dim := ds.Rows()
	frames := int64(ds.Width())
	if end >= frames {
		return nil, fmt.Errorf("%w: frame %d out of bounds for legacy features with %d columns",
			errs.ErrFormat, end, frames)
	}

	flat, err := ds.ReadFloat64(0, dim)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, end-start+1)
	for i := range out {
		vec := make([]float64, dim)
		for d := int64(0); d < dim; d++ {
			vec[d] = flat[d*frames+start+int64(i)]
		}
		out[i] = vec
	}

	return out, nil
}

// splitItems cuts the contiguous slice back into one ItemData per covered
// item using the resolver's re-based split offsets.
func (r *Reader) splitItems(rng index.Range, times []float64, features [][]float64) []ItemData {
	out := make([]ItemData, 0, rng.LastItem-rng.FirstItem+1)

	s1, _ := r.snap.Items.FrameRange(rng.FirstItem)
	shift := rng.Start - s1

	lo := int64(0)
	for i, p := 0, rng.FirstItem; p <= rng.LastItem; i, p = i+1, p+1 {
		hi := int64(len(times))
		if i < len(rng.Splits) {
			hi = rng.Splits[i] + 1 - shift
		}

		out = append(out, ItemData{
			Item:     r.snap.Items.Name(p),
			Times:    times[lo:hi],
			Features: features[lo:hi],
		})
		lo = hi
	}

	return out
}

// Close releases the backing store when the reader owns it.
func (r *Reader) Close() error {
	if r.fs == nil {
		return nil
	}

	return r.fs.Close()
}
