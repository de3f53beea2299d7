package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/featstore/errs"
	"github.com/arloliu/featstore/format"
	"github.com/arloliu/featstore/store"
	"github.com/arloliu/featstore/store/memstore"
)

func mustCodec(t *testing.T, v format.VersionTag) Codec {
	t.Helper()

	c, err := ForVersion(v)
	require.NoError(t, err)

	return c
}

func TestForVersion_Unknown(t *testing.T) {
	_, err := ForVersion(format.VersionTag(0x7F))
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
}

func TestProbeVersion(t *testing.T) {
	g := memstore.NewGroup("probe")

	// absent marker implies the legacy layout
	v, err := ProbeVersion(g)
	require.NoError(t, err)
	require.Equal(t, format.VersionLegacy, v)

	require.NoError(t, g.SetAttr(AttrVersion, "0.1"))
	v, err = ProbeVersion(g)
	require.NoError(t, err)
	require.Equal(t, format.VersionLegacy, v)

	require.NoError(t, g.SetAttr(AttrVersion, "1.0"))
	v, err = ProbeVersion(g)
	require.NoError(t, err)
	require.Equal(t, format.VersionV1, v)

	require.NoError(t, g.SetAttr(AttrVersion, "1.1"))
	v, err = ProbeVersion(g)
	require.NoError(t, err)
	require.Equal(t, format.VersionCurrent, v)

	require.NoError(t, g.SetAttr(AttrVersion, "9.9"))
	_, err = ProbeVersion(g)
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
}

func TestCodec_CurrentRoundTrip(t *testing.T) {
	g := memstore.NewGroup("current")
	codec := mustCodec(t, format.VersionCurrent)

	err := codec.Write(g, Update{
		NewNames: []string{"a", "b"},
		Offsets:  []int64{3, 6},
		Times:    []float64{1, 2, 3, 4, 1, 2, 3},
		Format:   format.FormatDense,
	})
	require.NoError(t, err)

	snap, err := codec.Read(g)
	require.NoError(t, err)
	require.Equal(t, format.VersionCurrent, snap.Version)
	require.Equal(t, format.FormatDense, snap.Format)
	require.Equal(t, []string{"a", "b"}, snap.Items.Names())
	require.Equal(t, []int64{3, 6}, snap.Items.Offsets())
	require.Len(t, snap.Times, 7)

	// the version marker written must probe back to Current
	v, err := ProbeVersion(g)
	require.NoError(t, err)
	require.Equal(t, format.VersionCurrent, v)
}

func TestCodec_WriteContinuation(t *testing.T) {
	g := memstore.NewGroup("cont")
	codec := mustCodec(t, format.VersionCurrent)

	err := codec.Write(g, Update{
		NewNames: []string{"a"},
		Offsets:  []int64{4},
		Times:    []float64{1, 2, 3, 4, 5},
		Format:   format.FormatDense,
	})
	require.NoError(t, err)

	// continuing "a" with 3 more frames replaces the last index slot
	err = codec.Write(g, Update{
		Offsets:     []int64{7},
		ReplaceLast: true,
		Times:       []float64{6, 7, 8},
		Format:      format.FormatDense,
	})
	require.NoError(t, err)

	snap, err := codec.Read(g)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, snap.Items.Names())
	require.Equal(t, []int64{7}, snap.Items.Offsets())
	require.Len(t, snap.Times, 8)
}

func TestCodec_WriteContinuationEmptyIndex(t *testing.T) {
	g := memstore.NewGroup("cont-empty")
	codec := mustCodec(t, format.VersionCurrent)

	err := codec.Write(g, Update{
		Offsets:     []int64{2},
		ReplaceLast: true,
		Times:       []float64{1, 2, 3},
		Format:      format.FormatDense,
	})
	require.ErrorIs(t, err, errs.ErrInconsistentState)
}

func TestCodec_V1Read(t *testing.T) {
	g := memstore.NewGroup("v1")
	require.NoError(t, g.SetAttr(AttrVersion, "1.0"))
	require.NoError(t, g.SetAttr(AttrFormat, "dense"))

	files, err := g.CreateDataset("files", store.String, 0)
	require.NoError(t, err)
	require.NoError(t, files.AppendStrings([]string{"x", "y"}))

	fileIndex, err := g.CreateDataset("file_index", store.Int64, 1)
	require.NoError(t, err)
	require.NoError(t, fileIndex.AppendInt64([]int64{1, 3}))

	times, err := g.CreateDataset("times", store.Float64, 1)
	require.NoError(t, err)
	require.NoError(t, times.AppendFloat64([]float64{1, 2, 1, 2}))

	snap, err := mustCodec(t, format.VersionV1).Read(g)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, snap.Items.Names())
	require.Equal(t, []int64{1, 3}, snap.Items.Offsets())
}

func TestCodec_LegacyRead(t *testing.T) {
	g := memstore.NewGroup("legacy")
	require.NoError(t, g.SetAttr(AttrFormat, "dense"))

	files, err := g.CreateDataset("files", store.Int64, 1)
	require.NoError(t, err)
	require.NoError(t, files.AppendInt64(EncodeLegacyNames([]string{"dir/a", "dir/b"})))

	idx, err := g.CreateDataset("index", store.Int64, 1)
	require.NoError(t, err)
	require.NoError(t, idx.AppendInt64([]int64{2, 5}))

	times, err := g.CreateDataset("times", store.Float64, 1)
	require.NoError(t, err)
	require.NoError(t, times.AppendFloat64([]float64{1, 2, 3, 1, 2, 3}))

	snap, err := mustCodec(t, format.VersionLegacy).Read(g)
	require.NoError(t, err)
	require.Equal(t, []string{"dir/a", "dir/b"}, snap.Items.Names())
	require.Equal(t, []int64{2, 5}, snap.Items.Offsets())
}

func TestCodec_LegacyWriteRoundTrip(t *testing.T) {
	g := memstore.NewGroup("legacy-write")
	codec := mustCodec(t, format.VersionLegacy)

	err := codec.Write(g, Update{
		NewNames: []string{"a/b", "c"},
		Offsets:  []int64{1, 3},
		Times:    []float64{1, 2, 1, 2},
		Format:   format.FormatDense,
	})
	require.NoError(t, err)

	// appending more names must re-join the packed array correctly
	err = codec.Write(g, Update{
		NewNames: []string{"d"},
		Offsets:  []int64{5},
		Times:    []float64{1, 2},
		Format:   format.FormatDense,
	})
	require.NoError(t, err)

	snap, err := codec.Read(g)
	require.NoError(t, err)
	require.Equal(t, []string{"a/b", "c", "d"}, snap.Items.Names())
}

func TestCodec_SparseRoundTrip(t *testing.T) {
	g := memstore.NewGroup("sparse")
	codec := mustCodec(t, format.VersionCurrent)

	err := codec.Write(g, Update{
		NewNames: []string{"a"},
		Offsets:  []int64{2},
		Times:    []float64{1, 2, 3},
		Format:   format.FormatSparse,
		Dim:      13,
		Frames:   []int64{4, 2, 7},
	})
	require.NoError(t, err)

	snap, err := codec.Read(g)
	require.NoError(t, err)
	require.Equal(t, format.FormatSparse, snap.Format)
	require.Equal(t, int64(13), snap.Dim)
	require.Equal(t, []int64{4, 2, 7}, snap.Frames)
}

func TestCodec_ReadMissingDataset(t *testing.T) {
	g := memstore.NewGroup("broken")
	require.NoError(t, g.SetAttr(AttrVersion, "1.1"))
	require.NoError(t, g.SetAttr(AttrFormat, "dense"))

	_, err := mustCodec(t, format.VersionCurrent).Read(g)
	require.ErrorIs(t, err, errs.ErrFormat)
}

func TestCodec_ReadMissingFormatAttr(t *testing.T) {
	g := memstore.NewGroup("noformat")
	codec := mustCodec(t, format.VersionCurrent)

	items, err := g.CreateDataset("items", store.String, 0)
	require.NoError(t, err)
	require.NoError(t, items.AppendStrings([]string{"a"}))

	idx, err := g.CreateDataset("index", store.Int64, 1)
	require.NoError(t, err)
	require.NoError(t, idx.AppendInt64([]int64{0}))

	times, err := g.CreateDataset("times", store.Float64, 1)
	require.NoError(t, err)
	require.NoError(t, times.AppendFloat64([]float64{1}))

	_, err = codec.Read(g)
	require.ErrorIs(t, err, errs.ErrFormat)
}
