package gpuerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Simple:   "simple",
		Aborted:  "aborted",
		GpuTools: "gpu_tools",
		Io:       "io",
		Overflow: "overflow",
		Kind(99): "unknown",
	}
	for k, want := range cases {
		require.Equal(t, want, k.String())
	}
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := Simplef("buffer length %d is not a power of two", 3)
	require.ErrorIs(t, err, ErrSimple)
	require.False(t, errors.Is(err, ErrAborted))
}

func TestWrapGpuToolsUnwraps(t *testing.T) {
	cause := errors.New("device allocation failed")
	err := WrapGpuTools("msm: allocating bucket table", cause)
	require.ErrorIs(t, err, ErrGpuTools)
	require.ErrorIs(t, err, cause)

	var asErr *Error
	require.True(t, errors.As(err, &asErr))
	require.Equal(t, GpuTools, asErr.Kind)
}

func TestNewAbortedAndOverflow(t *testing.T) {
	require.ErrorIs(t, NewAborted(), ErrAborted)
	require.ErrorIs(t, NewOverflow("bucket index out of range"), ErrOverflow)
}
