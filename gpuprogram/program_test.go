//go:build !cuda && !opencl

package gpuprogram

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consensys/gnark-gpu/gpuerr"
)

func TestDefaultBuildHasNoDevices(t *testing.T) {
	require.Empty(t, Devices())
}

func TestDefaultBuildLoadFailsFast(t *testing.T) {
	_, err := Load(Device{Name: "phantom"}, Source{Identifier: "bn254_fr"})
	require.Error(t, err)
	require.ErrorIs(t, err, gpuerr.ErrGpuTools)
}
