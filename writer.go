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

// featuresKey is the dataset holding the concatenated frame vectors. It is
// the same in every layout era.
const featuresKey = "features"

// Writer is a write session on one group. It owns the in-memory item index
// between writes and persists every write in the Current layout.
//
// A writer must be the only session touching its store; see the package
// documentation for the concurrency contract. Each Write flushes the group,
// but a Write interrupted midway can leave the on-disk group inconsistent:
// there is no rollback.
type Writer struct {
	fs    *fsstore.Store
	group store.Group
	codec index.Codec
	idx   *index.ItemIndex
	dim   int

	chunkRows   int
	compression format.CompressionType
}

// WriterOption configures a Writer at creation time.
type WriterOption = options.Option[*Writer]

// WithDim fixes the feature dim up front instead of inferring it from the
// first written frame.
func WithDim(dim int) WriterOption {
	return options.New(func(w *Writer) error {
		if dim <= 0 {
			return fmt.Errorf("feature dim must be positive, got %d", dim)
		}
		w.dim = dim

		return nil
	})
}

// WithChunkRows sets the rows per storage chunk for newly created datasets.
func WithChunkRows(rows int) WriterOption {
	return options.New(func(w *Writer) error {
		if rows <= 0 {
			return fmt.Errorf("chunk rows must be positive, got %d", rows)
		}
		w.chunkRows = rows

		return nil
	})
}

// WithCompression sets the chunk compression for newly created datasets.
func WithCompression(c format.CompressionType) WriterOption {
	return options.NoError(func(w *Writer) {
		w.compression = c
	})
}

// CreateWriter opens a write session, creating the store and group as
// needed. An existing group is appended to and must use the Current layout.
func CreateWriter(path, group string, opts ...WriterOption) (*Writer, error) {
	return newWriter(path, group, true, opts...)
}

// OpenWriter opens a write session on an existing store and group.
func OpenWriter(path, group string, opts ...WriterOption) (*Writer, error) {
	return newWriter(path, group, false, opts...)
}

func newWriter(path, group string, create bool, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		chunkRows:   fsstore.DefaultChunkRows,
		compression: format.CompressionNone,
	}
	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	var err error
	storeOpts := []fsstore.Option{
		fsstore.WithChunkRows(w.chunkRows),
		fsstore.WithCompression(w.compression),
	}
	if create {
		w.fs, err = fsstore.Create(path, storeOpts...)
	} else {
		w.fs, err = fsstore.Open(path, storeOpts...)
	}
	if err != nil {
		return nil, err
	}

	var g *fsstore.Group
	if create {
		g, err = w.fs.CreateGroup(group)
	} else {
		g, err = w.fs.Group(group)
	}
	if err != nil {
		w.fs.Close()
		return nil, err
	}
	w.group = g

	w.codec, _ = index.ForVersion(format.VersionCurrent)
	if err := w.loadExisting(); err != nil {
		w.fs.Close()
		return nil, err
	}

	return w, nil
}

// loadExisting restores the in-memory index of a group that already holds
// data, validating that it can be appended to.
func (w *Writer) loadExisting() error {
	version, err := index.ProbeVersion(w.group)
	if err != nil {
		return err
	}

	// A fresh group carries no version marker and probes as Legacy; it is
	// distinguished from a populated legacy group by the absence of that
	// era's index dataset.
	probed, err := index.ForVersion(version)
	if err != nil {
		return err
	}
	if !w.group.HasDataset(probed.Layout().IndexKey) {
		w.idx, _ = index.NewItemIndex(nil, nil)
		return nil
	}

	if version != format.VersionCurrent {
		return fmt.Errorf("%w: cannot append to a %s layout group", errs.ErrFormat, version)
	}

	layout := w.codec.Layout()

	marker, err := store.StringAttr(w.group, index.AttrFormat)
	if err != nil {
		return err
	}
	if marker == format.FormatMarkerSparse {
		return fmt.Errorf("%w: cannot append to a sparse group", errs.ErrSparseUnsupported)
	}

	names, err := readAll(w.group, layout.ItemsKey, store.Dataset.ReadStrings)
	if err != nil {
		return err
	}
	offsets, err := readAll(w.group, layout.IndexKey, store.Dataset.ReadInt64)
	if err != nil {
		return err
	}
	w.idx, err = index.NewItemIndex(names, offsets)
	if err != nil {
		return err
	}

	if w.group.HasDataset(featuresKey) {
		feats, err := w.group.Dataset(featuresKey)
		if err != nil {
			return err
		}
		if w.dim != 0 && w.dim != feats.Width() {
			return fmt.Errorf("%w: group stores dim %d, writer configured for %d",
				errs.ErrInvalidItem, feats.Width(), w.dim)
		}
		w.dim = feats.Width()
	}

	return nil
}

// Write appends items to the group.
//
// If the first item's name equals the most recently written item's name, the
// write continues that item: its frames are appended to the existing item
// and no new index slot is created. All other items become new entries.
func (w *Writer) Write(items ...Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no items to write", errs.ErrInvalidItem)
	}

	names := make([]string, len(items))
	counts := make([]int64, len(items))
	frames := 0
	for i, it := range items {
		dim, err := it.validate(w.dim)
		if err != nil {
			return err
		}
		if dim != 0 {
			w.dim = dim
		}
		names[i] = it.Name
		counts[i] = int64(len(it.Features))
		frames += len(it.Features)
	}

	continueLast := w.idx.Len() > 0 && names[0] == w.idx.Name(w.idx.Len()-1)

	res, err := w.idx.Extend(names, counts, continueLast)
	if err != nil {
		return err
	}

	upd := index.Update{
		NewNames:    names,
		Offsets:     res.Offsets,
		ReplaceLast: res.ReplaceLast,
		Times:       make([]float64, 0, frames),
		Format:      format.FormatDense,
	}
	if continueLast {
		upd.NewNames = names[1:]
	}
	for _, it := range items {
		upd.Times = append(upd.Times, it.Times...)
	}

	if err := w.codec.Write(w.group, upd); err != nil {
		return err
	}

	if err := w.writeFeatures(items, frames); err != nil {
		return err
	}

	return w.group.Flush()
}

func (w *Writer) writeFeatures(items []Item, frames int) error {
	if frames == 0 {
		return nil
	}

	var feats store.Dataset
	var err error
	if w.group.HasDataset(featuresKey) {
		feats, err = w.group.Dataset(featuresKey)
	} else {
		feats, err = w.group.CreateDataset(featuresKey, store.Float64, w.dim)
	}
	if err != nil {
		return err
	}

	flat := make([]float64, 0, frames*w.dim)
	for _, it := range items {
		for _, f := range it.Features {
			flat = append(flat, f...)
		}
	}

	return feats.AppendFloat64(flat)
}

// Items returns the names currently in the index, including items written by
// earlier sessions.
func (w *Writer) Items() []string {
	return w.idx.Names()
}

// Close flushes pending state and releases the store.
func (w *Writer) Close() error {
	err := w.group.Flush()
	if cerr := w.fs.Close(); cerr != nil && err == nil {
		err = cerr
	}

	return err
}

// readAll reads every row of a dataset with the given typed read method.
func readAll[T any](g store.Group, name string, read func(store.Dataset, int64, int64) ([]T, error)) ([]T, error) {
	ds, err := g.Dataset(name)
	if err != nil {
		return nil, err
	}

	return read(ds, 0, ds.Rows())
}
