package fsstore

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/featstore/errs"
	"github.com/arloliu/featstore/format"
	"github.com/arloliu/featstore/store"
)

func newTestGroup(t *testing.T, opts ...Option) (*Store, store.Group) {
	t.Helper()

	s, err := Create(filepath.Join(t.TempDir(), "corpus"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	g, err := s.CreateGroup("grp")
	require.NoError(t, err)

	return s, g
}

func TestDataset_Int64RoundTrip(t *testing.T) {
	_, g := newTestGroup(t, WithChunkRows(4))

	ds, err := g.CreateDataset("vals", store.Int64, 1)
	require.NoError(t, err)

	vals := make([]int64, 11)
	for i := range vals {
		vals[i] = int64(i * 7)
	}
	require.NoError(t, ds.AppendInt64(vals))
	require.Equal(t, int64(11), ds.Rows())

	// full range spans two sealed chunks plus the tail
	got, err := ds.ReadInt64(0, 11)
	require.NoError(t, err)
	require.Equal(t, vals, got)

	// range crossing a chunk boundary
	got, err = ds.ReadInt64(3, 9)
	require.NoError(t, err)
	require.Equal(t, vals[3:9], got)

	// range entirely inside the tail
	got, err = ds.ReadInt64(9, 11)
	require.NoError(t, err)
	require.Equal(t, vals[9:11], got)

	// empty range
	got, err = ds.ReadInt64(5, 5)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDataset_Float64Width(t *testing.T) {
	_, g := newTestGroup(t, WithChunkRows(2))

	ds, err := g.CreateDataset("feat", store.Float64, 3)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Width())

	rows := []float64{
		1.0, 1.1, 1.2,
		2.0, 2.1, 2.2,
		3.0, 3.1, 3.2,
		4.0, 4.1, 4.2,
		5.0, 5.1, 5.2,
	}
	require.NoError(t, ds.AppendFloat64(rows))
	require.Equal(t, int64(5), ds.Rows())

	got, err := ds.ReadFloat64(1, 4)
	require.NoError(t, err)
	require.Equal(t, rows[3:12], got)

	// ragged append is rejected
	require.ErrorIs(t, ds.AppendFloat64([]float64{1.0, 2.0}), errs.ErrDTypeMismatch)
}

func TestDataset_Strings(t *testing.T) {
	_, g := newTestGroup(t, WithChunkRows(3))

	ds, err := g.CreateDataset("names", store.String, 0)
	require.NoError(t, err)

	vals := []string{"alpha", "", "b", "utterance/with/slashes", "ε", "final", "tail"}
	require.NoError(t, ds.AppendStrings(vals))

	got, err := ds.ReadStrings(0, int64(len(vals)))
	require.NoError(t, err)
	require.Equal(t, vals, got)

	got, err = ds.ReadStrings(2, 5)
	require.NoError(t, err)
	require.Equal(t, vals[2:5], got)
}

func TestDataset_DTypeMismatch(t *testing.T) {
	_, g := newTestGroup(t)

	ds, err := g.CreateDataset("vals", store.Int64, 1)
	require.NoError(t, err)

	require.ErrorIs(t, ds.AppendFloat64([]float64{1.0}), errs.ErrDTypeMismatch)
	_, err = ds.ReadStrings(0, 0)
	require.ErrorIs(t, err, errs.ErrDTypeMismatch)
}

func TestDataset_ReadOutOfBounds(t *testing.T) {
	_, g := newTestGroup(t)

	ds, err := g.CreateDataset("vals", store.Int64, 1)
	require.NoError(t, err)
	require.NoError(t, ds.AppendInt64([]int64{1, 2, 3}))

	_, err = ds.ReadInt64(0, 4)
	require.Error(t, err)
	_, err = ds.ReadInt64(-1, 2)
	require.Error(t, err)
	_, err = ds.ReadInt64(2, 1)
	require.Error(t, err)
}

func TestDataset_TruncateWithinTail(t *testing.T) {
	_, g := newTestGroup(t, WithChunkRows(4))

	ds, err := g.CreateDataset("vals", store.Int64, 1)
	require.NoError(t, err)
	require.NoError(t, ds.AppendInt64([]int64{1, 2, 3, 4, 5, 6}))

	require.NoError(t, ds.Truncate(5))
	require.Equal(t, int64(5), ds.Rows())

	require.NoError(t, ds.AppendInt64([]int64{50}))
	got, err := ds.ReadInt64(0, 6)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 4, 5, 50}, got)
}

func TestDataset_TruncateIntoSealedChunk(t *testing.T) {
	_, g := newTestGroup(t, WithChunkRows(4))

	ds, err := g.CreateDataset("vals", store.Int64, 1)
	require.NoError(t, err)
	require.NoError(t, ds.AppendInt64([]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))

	// cut lands inside the second sealed chunk
	require.NoError(t, ds.Truncate(6))
	require.Equal(t, int64(6), ds.Rows())

	require.NoError(t, ds.AppendInt64([]int64{60, 70}))
	got, err := ds.ReadInt64(0, 8)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 4, 5, 6, 60, 70}, got)
}

func TestDataset_TruncateBounds(t *testing.T) {
	_, g := newTestGroup(t)

	ds, err := g.CreateDataset("vals", store.Int64, 1)
	require.NoError(t, err)
	require.NoError(t, ds.AppendInt64([]int64{1, 2, 3}))

	require.Error(t, ds.Truncate(-1))
	require.Error(t, ds.Truncate(4))
	require.NoError(t, ds.Truncate(3))
	require.Equal(t, int64(3), ds.Rows())
}

func TestDataset_ReopenPersistence(t *testing.T) {
	for _, comp := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(comp.String(), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "corpus")

			s, err := Create(dir, WithChunkRows(4), WithCompression(comp))
			require.NoError(t, err)
			g, err := s.CreateGroup("grp")
			require.NoError(t, err)

			ds, err := g.CreateDataset("vals", store.Int64, 1)
			require.NoError(t, err)
			vals := make([]int64, 10)
			for i := range vals {
				vals[i] = int64(i)
			}
			require.NoError(t, ds.AppendInt64(vals))
			require.NoError(t, s.Close())

			s, err = Open(dir)
			require.NoError(t, err)
			defer s.Close()

			g, err = s.Group("grp")
			require.NoError(t, err)
			ds, err = g.Dataset("vals")
			require.NoError(t, err)
			require.Equal(t, int64(10), ds.Rows())

			got, err := ds.ReadInt64(0, 10)
			require.NoError(t, err)
			require.Equal(t, vals, got)

			// the reloaded tail keeps filling and sealing
			require.NoError(t, ds.AppendInt64([]int64{10, 11, 12}))
			got, err = ds.ReadInt64(8, 13)
			require.NoError(t, err)
			require.Equal(t, []int64{8, 9, 10, 11, 12}, got)
		})
	}
}

func TestDataset_MissingDataset(t *testing.T) {
	_, g := newTestGroup(t)

	_, err := g.Dataset("nope")
	require.ErrorIs(t, err, errs.ErrDatasetNotFound)
}

func TestDataset_CreateValidation(t *testing.T) {
	_, g := newTestGroup(t)

	_, err := g.CreateDataset("bad", store.Int64, 2)
	require.Error(t, err)
	_, err = g.CreateDataset("bad", store.Float64, 0)
	require.Error(t, err)

	_, err = g.CreateDataset("ok", store.Int64, 1)
	require.NoError(t, err)
	_, err = g.CreateDataset("ok", store.Int64, 1)
	require.Error(t, err)
}

func TestDataset_ManyChunks(t *testing.T) {
	_, g := newTestGroup(t, WithChunkRows(8), WithCompression(format.CompressionS2))

	ds, err := g.CreateDataset("feat", store.Float64, 2)
	require.NoError(t, err)

	const rows = 1000
	want := make([]float64, 0, rows*2)
	for i := 0; i < rows; i++ {
		row := []float64{float64(i), float64(i) / 3.0}
		want = append(want, row...)
		require.NoError(t, ds.AppendFloat64(row))
	}

	got, err := ds.ReadFloat64(0, rows)
	require.NoError(t, err)
	require.Equal(t, want, got)

	for _, span := range [][2]int64{{0, 8}, {7, 9}, {500, 777}, {995, 1000}} {
		got, err := ds.ReadFloat64(span[0], span[1])
		require.NoError(t, err)
		require.Equal(t, want[span[0]*2:span[1]*2], got, fmt.Sprintf("span %v", span))
	}
}
