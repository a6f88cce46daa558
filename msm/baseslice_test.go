package msm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBaseSliceFullExtent(t *testing.T) {
	buffer := []int{0, 1, 2, 3, 4}
	s := NewBaseSlice(buffer)
	require.Equal(t, 0, s.Skip())
	require.Equal(t, 5, s.Len())
	require.Equal(t, buffer, s.Bases())
}

func TestBaseSliceSliceSharesBackingArray(t *testing.T) {
	buffer := []int{0, 1, 2, 3, 4, 5, 6, 7}
	full := NewBaseSlice(buffer)

	window, err := full.Slice(4, 3)
	require.NoError(t, err)
	require.Equal(t, 4, window.Skip())
	require.Equal(t, 3, window.Len())
	require.Equal(t, []int{4, 5, 6}, window.Bases())

	// mutating through the original buffer is visible through the slice,
	// confirming it shares the backing array rather than copying.
	buffer[5] = 99
	require.Equal(t, 99, window.Bases()[1])
}

func TestBaseSliceSliceRejectsOutOfRange(t *testing.T) {
	full := NewBaseSlice([]int{0, 1, 2})
	_, err := full.Slice(1, 3)
	require.Error(t, err)
}

func TestBaseSliceSliceAtLastLegalOffset(t *testing.T) {
	buffer := make([]int, 1<<17)
	full := NewBaseSlice(buffer)
	window, err := full.Slice(1<<16, 1<<16)
	require.NoError(t, err)
	require.Equal(t, 1<<16, window.Len())
}
