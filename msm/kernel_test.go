package msm

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/consensys/gnark-gpu/descriptor"
	"github.com/consensys/gnark-gpu/gpuerr"
	"github.com/consensys/gnark-gpu/gpuprogram"
	"github.com/consensys/gnark-gpu/threadpool"
)

// fakeProgram is a minimal in-memory gpuprogram.Program: Alloc/Write/Read
// round-trip bytes faithfully, but Run never computes anything (no OpenCL
// device is available in this test binary). It exists to exercise Kernel's
// device-split/dispatch/cancellation wiring, the same role ntt's fake plays
// for NTT dispatch; it cannot stand in for an actual Pippenger device
// kernel, so it does not assert bucket-method numerical correctness —
// NaiveMultiexp covers that property on the host.
type fakeProgram struct {
	device gpuprogram.Device
	mem    map[int][]byte
	next   int
	runLog []string
}

func newFakeProgram(device gpuprogram.Device) *fakeProgram {
	return &fakeProgram{device: device, mem: make(map[int][]byte)}
}

func (p *fakeProgram) Device() gpuprogram.Device { return p.device }

func (p *fakeProgram) Alloc(n, elemBytes int) (gpuprogram.DeviceBuffer, error) {
	id := p.next
	p.next++
	p.mem[id] = make([]byte, n*elemBytes)
	return gpuprogram.NewDeviceBuffer(p.device, elemBytes, n, id), nil
}

func (p *fakeProgram) Write(buf gpuprogram.DeviceBuffer, host []byte) error {
	copy(p.mem[buf.Handle().(int)], host)
	return nil
}

func (p *fakeProgram) Read(buf gpuprogram.DeviceBuffer, host []byte) error {
	copy(host, p.mem[buf.Handle().(int)])
	return nil
}

func (p *fakeProgram) Run(kernelName string, globalWork, localWork int, args ...any) error {
	p.runLog = append(p.runLog, kernelName)
	return nil
}

func (p *fakeProgram) DeviceMemBytes() uint64 { return 1 << 30 }
func (p *fakeProgram) Close() error           { return nil }

func encodeAffine(a *bn254.G1Affine) []byte {
	b := a.X.Bytes()
	return b[:]
}

// decodeJac is intentionally trivial: the fake program never computes a
// real bucket sum (there is no device to run bn254_g1_bucket_reduce on), so
// there is nothing meaningful to decode. It exists only so Multiexp's
// dispatch/cancellation wiring can be exercised end to end.
func decodeJac(b []byte) bn254.G1Jac {
	var jac bn254.G1Jac
	return jac
}

func TestCreateFailsWithoutDevices(t *testing.T) {
	_, err := Create[fr.Element, *fr.Element, bn254.G1Jac, *bn254.G1Jac](descriptor.BN254G1, nil, nil)
	require.ErrorIs(t, err, gpuerr.ErrGpuTools)
}

func TestCreateRejectsMismatchedCounts(t *testing.T) {
	device := gpuprogram.Device{Name: "fake0"}
	_, err := Create[fr.Element, *fr.Element, bn254.G1Jac, *bn254.G1Jac](descriptor.BN254G1, []gpuprogram.Program{newFakeProgram(device)}, nil)
	require.Error(t, err)
}

func TestMultiexpRejectsMismatchedLengths(t *testing.T) {
	device := gpuprogram.Device{Name: "fake0"}
	prog := newFakeProgram(device)
	k, err := Create[fr.Element, *fr.Element, bn254.G1Jac, *bn254.G1Jac](descriptor.BN254G1, []gpuprogram.Program{prog}, []gpuprogram.Device{device})
	require.NoError(t, err)

	g, _, gAff, _ := bn254.Generators()
	_ = g
	bases := NewBaseSlice([]bn254.G1Affine{gAff})
	_, err = Multiexp[fr.Element, *fr.Element, bn254.G1Jac, *bn254.G1Jac, bn254.G1Affine](k, context.Background(), threadpool.New(), bases, []fr.Element{}, encodeAffine, decodeJac)
	require.ErrorIs(t, err, gpuerr.ErrSimple)
}

func TestMultiexpEmptyInputReturnsIdentity(t *testing.T) {
	device := gpuprogram.Device{Name: "fake0"}
	prog := newFakeProgram(device)
	k, err := Create[fr.Element, *fr.Element, bn254.G1Jac, *bn254.G1Jac](descriptor.BN254G1, []gpuprogram.Program{prog}, []gpuprogram.Device{device})
	require.NoError(t, err)

	bases := NewBaseSlice([]bn254.G1Affine{})
	result, err := Multiexp[fr.Element, *fr.Element, bn254.G1Jac, *bn254.G1Jac, bn254.G1Affine](k, context.Background(), threadpool.New(), bases, nil, encodeAffine, decodeJac)
	require.NoError(t, err)
	var zero bn254.G1Jac
	require.True(t, result.Equal(&zero))
}

func TestMultiexpDispatchesBucketKernelsPerDevice(t *testing.T) {
	device := gpuprogram.Device{Name: "fake0"}
	prog := newFakeProgram(device)
	k, err := Create[fr.Element, *fr.Element, bn254.G1Jac, *bn254.G1Jac](descriptor.BN254G1, []gpuprogram.Program{prog}, []gpuprogram.Device{device})
	require.NoError(t, err)

	g, _, gAff, _ := bn254.Generators()
	const n = 32
	affines := make([]bn254.G1Affine, n)
	scalars := make([]fr.Element, n)
	for i := range affines {
		var jac bn254.G1Jac
		jac.ScalarMultiplication(&g, big.NewInt(int64(i+1)))
		affines[i].FromJacobian(&jac)
		scalars[i].SetUint64(uint64(i + 1))
	}

	bases := NewBaseSlice(affines)
	_, err = Multiexp[fr.Element, *fr.Element, bn254.G1Jac, *bn254.G1Jac, bn254.G1Affine](k, context.Background(), threadpool.New(), bases, scalars, encodeAffine, decodeJac)
	require.NoError(t, err)
	require.Contains(t, prog.runLog, "bn254_g1_bucket_acc")
	require.Contains(t, prog.runLog, "bn254_g1_bucket_reduce")
}

func TestMultiexpObservesCancellation(t *testing.T) {
	device := gpuprogram.Device{Name: "fake0"}
	prog := newFakeProgram(device)
	k, err := Create[fr.Element, *fr.Element, bn254.G1Jac, *bn254.G1Jac](descriptor.BN254G1, []gpuprogram.Program{prog}, []gpuprogram.Device{device})
	require.NoError(t, err)

	g, _, gAff, _ := bn254.Generators()
	_ = gAff
	affines := []bn254.G1Affine{{}}
	var jac bn254.G1Jac
	jac.ScalarMultiplication(&g, big.NewInt(1))
	affines[0].FromJacobian(&jac)
	scalars := []fr.Element{{}}
	scalars[0].SetUint64(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bases := NewBaseSlice(affines)
	_, err = Multiexp[fr.Element, *fr.Element, bn254.G1Jac, *bn254.G1Jac, bn254.G1Affine](k, ctx, threadpool.New(), bases, scalars, encodeAffine, decodeJac)
	require.ErrorIs(t, err, gpuerr.ErrAborted)
}

func TestSplitByWeightProportions(t *testing.T) {
	devices := []gpuprogram.Device{{Name: "a", Weight: 1}, {Name: "b", Weight: 3}}
	programs := []gpuprogram.Program{nil, nil}
	shares := splitByWeight(devices, programs, 100)
	require.Len(t, shares, 2)
	require.Equal(t, 0, shares[0].start)
	require.InDelta(t, 25, shares[0].end-shares[0].start, 1)
	require.Equal(t, shares[0].end, shares[1].start)
	require.Equal(t, 100, shares[1].end)
}

func TestSplitByWeightDefaultsToUniform(t *testing.T) {
	devices := []gpuprogram.Device{{Name: "a"}, {Name: "b"}}
	programs := []gpuprogram.Program{nil, nil}
	shares := splitByWeight(devices, programs, 10)
	require.Equal(t, 5, shares[0].end-shares[0].start)
	require.Equal(t, 5, shares[1].end-shares[1].start)
}
