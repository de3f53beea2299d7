package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		marker string
		want   VersionTag
		ok     bool
	}{
		{"", VersionLegacy, true},
		{"0.1", VersionLegacy, true},
		{"1.0", VersionV1, true},
		{"1.1", VersionCurrent, true},
		{"2.0", 0, false},
		{"dense", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseVersion(tt.marker)
		require.Equal(t, tt.ok, ok, "marker %q", tt.marker)
		require.Equal(t, tt.want, got, "marker %q", tt.marker)
	}
}

func TestParseFormat(t *testing.T) {
	got, ok := ParseFormat("dense")
	require.True(t, ok)
	require.Equal(t, FormatDense, got)

	got, ok = ParseFormat("sparse")
	require.True(t, ok)
	require.Equal(t, FormatSparse, got)

	_, ok = ParseFormat("ragged")
	require.False(t, ok)
}

func TestVersionTag_MarkerRoundTrip(t *testing.T) {
	for _, v := range []VersionTag{VersionLegacy, VersionV1, VersionCurrent} {
		got, ok := ParseVersion(v.Marker())
		require.True(t, ok)
		require.Equal(t, v, got)
	}
	require.Empty(t, VersionTag(0xFF).Marker())
}

func TestString(t *testing.T) {
	require.Equal(t, "Legacy", VersionLegacy.String())
	require.Equal(t, "Current", VersionCurrent.String())
	require.Equal(t, "Unknown", VersionTag(0xFF).String())
	require.Equal(t, "Sparse", FormatSparse.String())
	require.Equal(t, "Zstd", CompressionZstd.String())
	require.Equal(t, "Unknown", CompressionType(0xFF).String())
}
