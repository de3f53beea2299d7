package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/featstore/errs"
)

func TestExtend_EmptyIndex(t *testing.T) {
	res, err := Extend(nil, []int64{4, 3, 2}, false)
	require.NoError(t, err)
	require.False(t, res.ReplaceLast)
	require.Equal(t, []int64{3, 6, 8}, res.Offsets)
}

func TestExtend_AppendToExisting(t *testing.T) {
	res, err := Extend([]int64{3, 6, 8}, []int64{5}, false)
	require.NoError(t, err)
	require.Equal(t, []int64{13}, res.Offsets)
}

func TestExtend_ContinueLastItem(t *testing.T) {
	// item "a" with 5 frames, continued with 3 more, ends at offset 7
	res, err := Extend([]int64{4}, []int64{3}, true)
	require.NoError(t, err)
	require.True(t, res.ReplaceLast)
	require.Equal(t, []int64{7}, res.Offsets)
}

func TestExtend_ContinueEmptyIndex(t *testing.T) {
	_, err := Extend(nil, []int64{3}, true)
	require.ErrorIs(t, err, errs.ErrInconsistentState)
}

func TestExtend_StrictlyIncreasingProperty(t *testing.T) {
	counts := []int64{5, 1, 7, 2, 9}

	res, err := Extend(nil, counts, false)
	require.NoError(t, err)

	require.Equal(t, counts[0]-1, res.Offsets[0])
	for i := 1; i < len(counts); i++ {
		require.Greater(t, res.Offsets[i], res.Offsets[i-1])
		require.Equal(t, counts[i], res.Offsets[i]-res.Offsets[i-1])
	}
}

func TestItemIndex_Extend(t *testing.T) {
	idx, err := NewItemIndex(nil, nil)
	require.NoError(t, err)

	res, err := idx.Extend([]string{"a", "b"}, []int64{4, 3}, false)
	require.NoError(t, err)
	require.Equal(t, []int64{3, 6}, res.Offsets)
	require.Equal(t, []string{"a", "b"}, idx.Names())

	// continuation merges into the existing last slot
	res, err = idx.Extend([]string{"b", "c"}, []int64{2, 2}, true)
	require.NoError(t, err)
	require.True(t, res.ReplaceLast)
	require.Equal(t, []int64{8, 10}, res.Offsets)
	require.Equal(t, []string{"a", "b", "c"}, idx.Names())
	require.Equal(t, []int64{3, 8, 10}, idx.Offsets())
}

func TestItemIndex_Extend_ContinuationNameMismatch(t *testing.T) {
	idx, err := NewItemIndex([]string{"a"}, []int64{4})
	require.NoError(t, err)

	_, err = idx.Extend([]string{"b"}, []int64{2}, true)
	require.ErrorIs(t, err, errs.ErrInconsistentState)
}

func TestItemIndex_Extend_LengthMismatch(t *testing.T) {
	idx, err := NewItemIndex(nil, nil)
	require.NoError(t, err)

	_, err = idx.Extend([]string{"a"}, []int64{2, 3}, false)
	require.ErrorIs(t, err, errs.ErrInvalidItem)
}
