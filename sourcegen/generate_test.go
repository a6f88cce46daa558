package sourcegen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consensys/gnark-gpu/descriptor"
)

func TestGenerateIsDeterministic(t *testing.T) {
	build := func() *Builder {
		b := NewBuilder()
		b.AddFFT(descriptor.BN254Fr)
		b.AddCurveFFT(descriptor.BN254G1)
		b.AddMultiexp(descriptor.BN254G1)
		return b
	}

	dir := t.TempDir()
	first, err := Generate(build(), dir)
	require.NoError(t, err)

	dir2 := t.TempDir()
	second, err := Generate(build(), dir2)
	require.NoError(t, err)

	require.Equal(t, first.ContentHash, second.ContentHash)
	require.Equal(t, first.OpenCLSource, second.OpenCLSource)
}

func TestGenerateReusesCacheOnSecondCall(t *testing.T) {
	b := NewBuilder()
	b.AddFFT(descriptor.BN254Fr)

	dir := t.TempDir()
	first, err := Generate(b, dir)
	require.NoError(t, err)

	second, err := Generate(b, dir)
	require.NoError(t, err)

	require.Equal(t, first.ContentHash, second.ContentHash)
}

func TestCacheIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/cache-index.cbor"

	idx, err := LoadCacheIndex(path)
	require.NoError(t, err)
	require.Empty(t, idx.Entries)

	var hash [32]byte
	hash[0] = 0xAB
	idx.Put(hash, "bundle-ab.cl")
	require.NoError(t, idx.Save(path))

	reloaded, err := LoadCacheIndex(path)
	require.NoError(t, err)
	p, ok := reloaded.Lookup(hash)
	require.True(t, ok)
	require.Equal(t, "bundle-ab.cl", p)
}
