// Package fsstore implements the store contract on the local filesystem.
//
// A store is a directory holding a marker file and one subdirectory per
// group. A group holds one pair of files per dataset (<name>.ds chunk data
// and <name>.idx chunk directory) plus an attrs.json file with its scalar
// attributes.
//
// Dataset rows are packed into fixed-size chunks, compressed independently
// and checksummed with xxHash64. Sealed chunks are immutable; only the tail
// chunk is mutable and lives in memory until the next Flush.
//
// fsstore provides no locking of any kind. A store must have at most one
// writer at a time, with readers excluded while it writes; the dataset file
// updates are not atomic across processes. Flush rewrites each chunk
// directory via a temp-file rename, so a crash between a data append and the
// directory rewrite leaves the dataset inconsistent. There is no rollback;
// callers must re-validate integrity out of band after such a failure.
package fsstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-json-experiment/json"

	"github.com/arloliu/featstore/errs"
	"github.com/arloliu/featstore/format"
	"github.com/arloliu/featstore/internal/options"
	"github.com/arloliu/featstore/store"
)

const (
	markerFile = "featstore.json"
	attrsFile  = "attrs.json"

	markerMagic = "featstore"

	// DefaultChunkRows is the number of rows per sealed chunk when no option
	// overrides it.
	DefaultChunkRows = 4096
)

type storeMarker struct {
	Magic   string `json:"magic"`
	Version int    `json:"version"`
}

// Store is a directory-backed collection of groups.
type Store struct {
	dir         string
	readOnly    bool
	chunkRows   int
	compression format.CompressionType
	groups      map[string]*Group
}

// Option configures a Store on Open or Create.
type Option = options.Option[*Store]

// WithReadOnly opens the store for reading only; every mutation fails with
// errs.ErrReadOnly.
func WithReadOnly() Option {
	return options.NoError(func(s *Store) {
		s.readOnly = true
	})
}

// WithChunkRows sets the number of rows per sealed chunk for datasets
// created through this store.
func WithChunkRows(rows int) Option {
	return options.New(func(s *Store) error {
		if rows <= 0 {
			return fmt.Errorf("chunk rows must be positive, got %d", rows)
		}
		s.chunkRows = rows

		return nil
	})
}

// WithCompression sets the chunk compression for datasets created through
// this store.
func WithCompression(c format.CompressionType) Option {
	return options.New(func(s *Store) error {
		switch c {
		case format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4:
			s.compression = c
		default:
			return fmt.Errorf("invalid chunk compression: %s", c)
		}

		return nil
	})
}

// Create initializes a new store directory. The directory is created if
// absent; an existing valid store is opened for writing instead.
func Create(dir string, opts ...Option) (*Store, error) {
	s, err := newStore(dir, opts...)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	markerPath := filepath.Join(dir, markerFile)
	if _, err := os.Stat(markerPath); err == nil {
		return s, s.checkMarker()
	}

	data, err := json.Marshal(storeMarker{Magic: markerMagic, Version: 1})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(markerPath, data, 0o644); err != nil {
		return nil, err
	}

	return s, nil
}

// Open opens an existing store directory.
// Returns errs.ErrInvalidStore if the path is not a featstore container.
func Open(dir string, opts ...Option) (*Store, error) {
	s, err := newStore(dir, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.checkMarker(); err != nil {
		return nil, err
	}

	return s, nil
}

func newStore(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:         dir,
		chunkRows:   DefaultChunkRows,
		compression: format.CompressionNone,
		groups:      make(map[string]*Group),
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) checkMarker() error {
	data, err := os.ReadFile(filepath.Join(s.dir, markerFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", errs.ErrInvalidStore, s.dir)
		}

		return err
	}

	var m storeMarker
	if err := json.Unmarshal(data, &m); err != nil || m.Magic != markerMagic {
		return fmt.Errorf("%w: %s", errs.ErrInvalidStore, s.dir)
	}

	return nil
}

// Path returns the store's root directory.
func (s *Store) Path() string {
	return s.dir
}

// HasGroup reports whether a group with the given name exists.
func (s *Store) HasGroup(name string) bool {
	info, err := os.Stat(filepath.Join(s.dir, name))

	return err == nil && info.IsDir()
}

// Group opens an existing group.
// Returns errs.ErrFormat if the group does not exist.
func (s *Store) Group(name string) (*Group, error) {
	if g, ok := s.groups[name]; ok {
		return g, nil
	}
	if !s.HasGroup(name) {
		return nil, fmt.Errorf("%w: %q is not a valid group in %s", errs.ErrFormat, name, s.dir)
	}

	g, err := openGroup(s, name)
	if err != nil {
		return nil, err
	}
	s.groups[name] = g

	return g, nil
}

// CreateGroup creates a new empty group, or opens it if it already exists.
func (s *Store) CreateGroup(name string) (*Group, error) {
	if s.readOnly {
		return nil, fmt.Errorf("%w: cannot create group %q", errs.ErrReadOnly, name)
	}
	if s.HasGroup(name) {
		return s.Group(name)
	}

	if err := os.MkdirAll(filepath.Join(s.dir, name), 0o755); err != nil {
		return nil, err
	}

	g := &Group{store: s, name: name, dir: filepath.Join(s.dir, name), attrs: make(map[string]any), attrsDirty: true}
	g.datasets = make(map[string]*Dataset)
	s.groups[name] = g

	return g, nil
}

// Close flushes and releases every open group.
func (s *Store) Close() error {
	var firstErr error
	for _, g := range s.groups {
		if err := g.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.groups = make(map[string]*Group)

	return firstErr
}

// Group is one named container of datasets within a store.
type Group struct {
	store      *Store
	name       string
	dir        string
	attrs      map[string]any
	attrsDirty bool
	datasets   map[string]*Dataset
}

var _ store.Group = (*Group)(nil)

func openGroup(s *Store, name string) (*Group, error) {
	g := &Group{
		store:    s,
		name:     name,
		dir:      filepath.Join(s.dir, name),
		attrs:    make(map[string]any),
		datasets: make(map[string]*Dataset),
	}

	data, err := os.ReadFile(filepath.Join(g.dir, attrsFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, &g.attrs); err != nil {
		return nil, fmt.Errorf("%w: group %q attributes: %v", errs.ErrFormat, name, err)
	}

	return g, nil
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// Attr returns a scalar attribute value. Numeric attributes read back from
// disk are reported as float64, the JSON number representation.
func (g *Group) Attr(key string) (any, bool) {
	v, ok := g.attrs[key]
	return v, ok
}

// SetAttr sets a scalar attribute value. The value is persisted on the next
// Flush.
func (g *Group) SetAttr(key string, value any) error {
	if g.store.readOnly {
		return fmt.Errorf("%w: cannot set attribute %q", errs.ErrReadOnly, key)
	}
	g.attrs[key] = value
	g.attrsDirty = true

	return nil
}

// HasDataset reports whether a dataset with the given name exists.
func (g *Group) HasDataset(name string) bool {
	if _, ok := g.datasets[name]; ok {
		return true
	}
	_, err := os.Stat(g.datasetPath(name))

	return err == nil
}

// Dataset opens an existing dataset.
// Returns errs.ErrDatasetNotFound if the name is absent.
func (g *Group) Dataset(name string) (store.Dataset, error) {
	if ds, ok := g.datasets[name]; ok {
		return ds, nil
	}

	ds, err := openDataset(g, name)
	if err != nil {
		return nil, err
	}
	g.datasets[name] = ds

	return ds, nil
}

// CreateDataset creates a new empty dataset with the store's chunk size and
// compression settings.
func (g *Group) CreateDataset(name string, dtype store.DType, width int) (store.Dataset, error) {
	if g.store.readOnly {
		return nil, fmt.Errorf("%w: cannot create dataset %q", errs.ErrReadOnly, name)
	}
	if g.HasDataset(name) {
		return nil, fmt.Errorf("dataset %q already exists in group %q", name, g.name)
	}

	ds, err := createDataset(g, name, dtype, width)
	if err != nil {
		return nil, err
	}
	g.datasets[name] = ds

	return ds, nil
}

// Flush persists all pending dataset state and the group attributes.
func (g *Group) Flush() error {
	for _, ds := range g.datasets {
		if err := ds.Flush(); err != nil {
			return err
		}
	}

	if g.attrsDirty && !g.store.readOnly {
		data, err := json.Marshal(g.attrs)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(filepath.Join(g.dir, attrsFile), data); err != nil {
			return err
		}
		g.attrsDirty = false
	}

	return nil
}

func (g *Group) close() error {
	err := g.Flush()
	for _, ds := range g.datasets {
		if cerr := ds.close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	g.datasets = make(map[string]*Dataset)

	return err
}

func (g *Group) datasetPath(name string) string {
	return filepath.Join(g.dir, name+".ds")
}

func (g *Group) indexPath(name string) string {
	return filepath.Join(g.dir, name+".idx")
}

// writeFileAtomic writes data to a temp file in the target's directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
