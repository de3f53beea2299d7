package index

import (
	"fmt"

	"github.com/arloliu/featstore/errs"
	"github.com/arloliu/featstore/format"
	"github.com/arloliu/featstore/store"
)

// Attribute keys shared by all layout eras.
const (
	AttrVersion = "version"
	AttrFormat  = "format"
	AttrDim     = "dim"
)

// Layout holds the dataset key names of one on-disk layout era.
type Layout struct {
	// ItemsKey addresses the item name dataset.
	ItemsKey string
	// IndexKey addresses the cumulative offset dataset.
	IndexKey string
	// TimesKey addresses the per-frame time dataset.
	TimesKey string
	// FramesKey addresses the sparse frame-length side dataset.
	FramesKey string
	// PackedNames reports that item names are stored as a flat code-point
	// array instead of a string dataset.
	PackedNames bool
}

// Snapshot is a fully loaded index: everything needed to resolve queries
// without touching the store again. It is immutable for the duration of a
// read session.
type Snapshot struct {
	Version format.VersionTag
	Format  format.FormatTag
	Items   *ItemIndex
	Times   []float64

	// Dim and Frames carry the sparse side data. They are preserved as raw
	// values only; decoding sparse frames is not implemented.
	Dim    int64
	Frames []int64
}

// Update is the result of a write, handed to a codec for persistence: the
// builder output plus the data accompanying it.
type Update struct {
	// NewNames holds the names of the items appended by this write. On a
	// continuation the merged first item is already excluded.
	NewNames []string
	// Offsets is BuildResult.Offsets: the cumulative end offsets to persist.
	Offsets []int64
	// ReplaceLast is BuildResult.ReplaceLast: the first offset overwrites
	// the current last index slot.
	ReplaceLast bool
	// Times holds one timestamp per newly written frame.
	Times []float64

	Format format.FormatTag

	// Dim and Frames are written only for sparse-format stores.
	Dim    int64
	Frames []int64
}

// Codec translates between the in-memory Snapshot and one on-disk layout.
type Codec struct {
	version format.VersionTag
	layout  Layout
}

// ForVersion returns the codec for the given layout era.
// Returns errs.ErrUnsupportedVersion for an unknown tag.
func ForVersion(v format.VersionTag) (Codec, error) {
	switch v {
	case format.VersionLegacy:
		return Codec{
			version: v,
			layout:  Layout{ItemsKey: "files", IndexKey: "index", TimesKey: "times", FramesKey: "lines", PackedNames: true},
		}, nil
	case format.VersionV1:
		return Codec{
			version: v,
			layout:  Layout{ItemsKey: "files", IndexKey: "file_index", TimesKey: "times", FramesKey: "frames"},
		}, nil
	case format.VersionCurrent:
		return Codec{
			version: v,
			layout:  Layout{ItemsKey: "items", IndexKey: "index", TimesKey: "times", FramesKey: "frames"},
		}, nil
	default:
		return Codec{}, fmt.Errorf("%w: %v", errs.ErrUnsupportedVersion, v)
	}
}

// ProbeVersion determines the layout era of a group from its version marker
// attribute. An absent marker implies the legacy layout.
// Returns errs.ErrUnsupportedVersion for a marker that maps to no known era.
func ProbeVersion(g store.Group) (format.VersionTag, error) {
	v, ok := g.Attr(AttrVersion)
	if !ok {
		return format.VersionLegacy, nil
	}
	marker, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("%w: version attribute is %T, not string", errs.ErrFormat, v)
	}

	tag, ok := format.ParseVersion(marker)
	if !ok {
		return 0, fmt.Errorf("%w: version marker %q", errs.ErrUnsupportedVersion, marker)
	}

	return tag, nil
}

// Version returns the layout era this codec reads and writes.
func (c Codec) Version() format.VersionTag {
	return c.version
}

// Layout returns the dataset key names of this codec's era.
func (c Codec) Layout() Layout {
	return c.layout
}

// Read loads the full index of a group into memory.
// Returns errs.ErrFormat if a required dataset or attribute is absent or
// malformed.
func (c Codec) Read(g store.Group) (*Snapshot, error) {
	names, err := c.readNames(g)
	if err != nil {
		return nil, err
	}

	offsets, err := readAllInt64(g, c.layout.IndexKey)
	if err != nil {
		return nil, err
	}

	items, err := NewItemIndex(names, offsets)
	if err != nil {
		return nil, err
	}

	times, err := readAllFloat64(g, c.layout.TimesKey)
	if err != nil {
		return nil, err
	}

	marker, err := store.StringAttr(g, AttrFormat)
	if err != nil {
		return nil, err
	}
	tag, ok := format.ParseFormat(marker)
	if !ok {
		return nil, fmt.Errorf("%w: format marker %q", errs.ErrFormat, marker)
	}

	snap := &Snapshot{
		Version: c.version,
		Format:  tag,
		Items:   items,
		Times:   times,
	}

	if tag == format.FormatSparse {
		// Side data is carried through opaquely; sparse frames themselves
		// are never decoded.
		snap.Dim, err = store.IntAttr(g, AttrDim)
		if err != nil {
			return nil, err
		}
		snap.Frames, err = readAllInt64(g, c.layout.FramesKey)
		if err != nil {
			return nil, err
		}
	}

	return snap, nil
}

// Write persists one index update to a group, creating the index datasets on
// first use and stamping the version and format markers.
//
// The dataset appends below are not atomic with respect to each other: a
// write interrupted midway leaves the group inconsistent. The original
// system offers no rollback and neither does this one; integrity after a
// partial failure must be re-validated out of band.
func (c Codec) Write(g store.Group, upd Update) error {
	if err := g.SetAttr(AttrVersion, c.version.Marker()); err != nil {
		return err
	}
	if err := g.SetAttr(AttrFormat, upd.Format.Marker()); err != nil {
		return err
	}

	if err := c.writeNames(g, upd.NewNames); err != nil {
		return err
	}

	idx, err := ensureDataset(g, c.layout.IndexKey, store.Int64, 1)
	if err != nil {
		return err
	}
	if upd.ReplaceLast {
		if idx.Rows() == 0 {
			return fmt.Errorf("%w: continuation write against an empty index dataset", errs.ErrInconsistentState)
		}
		if err := idx.Truncate(idx.Rows() - 1); err != nil {
			return err
		}
	}
	if err := idx.AppendInt64(upd.Offsets); err != nil {
		return err
	}

	times, err := ensureDataset(g, c.layout.TimesKey, store.Float64, 1)
	if err != nil {
		return err
	}
	if err := times.AppendFloat64(upd.Times); err != nil {
		return err
	}

	if upd.Format == format.FormatSparse {
		if err := g.SetAttr(AttrDim, upd.Dim); err != nil {
			return err
		}
		frames, err := ensureDataset(g, c.layout.FramesKey, store.Int64, 1)
		if err != nil {
			return err
		}
		if err := frames.AppendInt64(upd.Frames); err != nil {
			return err
		}
	}

	return nil
}

func (c Codec) readNames(g store.Group) ([]string, error) {
	if c.layout.PackedNames {
		packed, err := readAllInt64(g, c.layout.ItemsKey)
		if err != nil {
			return nil, err
		}

		return DecodeLegacyNames(packed), nil
	}

	ds, err := g.Dataset(c.layout.ItemsKey)
	if err != nil {
		return nil, fmt.Errorf("%w: dataset %q: %w", errs.ErrFormat, c.layout.ItemsKey, err)
	}

	return ds.ReadStrings(0, ds.Rows())
}

func (c Codec) writeNames(g store.Group, names []string) error {
	if len(names) == 0 {
		return nil
	}

	if c.layout.PackedNames {
		ds, err := ensureDataset(g, c.layout.ItemsKey, store.Int64, 1)
		if err != nil {
			return err
		}
		packed := EncodeLegacyNames(names)
		if ds.Rows() > 0 {
			// Joining onto an existing packed array needs the separator
			// between the old last name and the new first one.
			packed = append([]int64{'/', '\\'}, packed...)
		}

		return ds.AppendInt64(packed)
	}

	ds, err := ensureDataset(g, c.layout.ItemsKey, store.String, 0)
	if err != nil {
		return err
	}

	return ds.AppendStrings(names)
}

func ensureDataset(g store.Group, name string, dtype store.DType, width int) (store.Dataset, error) {
	if g.HasDataset(name) {
		return g.Dataset(name)
	}

	return g.CreateDataset(name, dtype, width)
}

func readAllInt64(g store.Group, name string) ([]int64, error) {
	ds, err := g.Dataset(name)
	if err != nil {
		return nil, fmt.Errorf("%w: dataset %q: %w", errs.ErrFormat, name, err)
	}

	return ds.ReadInt64(0, ds.Rows())
}

func readAllFloat64(g store.Group, name string) ([]float64, error) {
	ds, err := g.Dataset(name)
	if err != nil {
		return nil, fmt.Errorf("%w: dataset %q: %w", errs.ErrFormat, name, err)
	}

	return ds.ReadFloat64(0, ds.Rows())
}
