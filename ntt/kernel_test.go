package ntt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/consensys/gnark-gpu/descriptor"
	"github.com/consensys/gnark-gpu/gpuerr"
	"github.com/consensys/gnark-gpu/gpuprogram"
)

// fakeProgram is an in-memory gpuprogram.Program used to exercise Kernel's
// upload/dispatch/readback wiring without a real device. Run does no
// arithmetic: a radix-round launch copies its input buffer into its output
// buffer unchanged (so the host's ping-pong between the two buffers still
// carries the data along) and every other launch is a no-op, so a round trip
// through Fft must return exactly what was written — this isolates
// marshal/unmarshal correctness from the (device-side, untestable here) NTT
// math itself.
type fakeProgram struct {
	device  gpuprogram.Device
	mem     map[int][]byte
	next    int
	runLog  []string
	failRun bool
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
	id := bufID(buf)
	copy(p.mem[id], host)
	return nil
}

func (p *fakeProgram) Read(buf gpuprogram.DeviceBuffer, host []byte) error {
	id := bufID(buf)
	copy(host, p.mem[id])
	return nil
}

func (p *fakeProgram) Run(kernelName string, globalWork, localWork int, args ...any) error {
	p.runLog = append(p.runLog, kernelName)
	if p.failRun {
		return gpuerr.WrapGpuTools("fake kernel launch failed", nil)
	}
	if strings.HasSuffix(kernelName, "_radix_fft_round") {
		src := args[0].(gpuprogram.DeviceBuffer)
		dst := args[1].(gpuprogram.DeviceBuffer)
		copy(p.mem[bufID(dst)], p.mem[bufID(src)])
	}
	return nil
}

func (p *fakeProgram) DeviceMemBytes() uint64 { return 1 << 30 }
func (p *fakeProgram) Close() error           { return nil }

// bufID recovers the handle NewDeviceBuffer stored, by round-tripping
// through Alloc's contract: Alloc is the only place a handle is set, and
// fakeProgram always stores an int.
func bufID(buf gpuprogram.DeviceBuffer) int {
	return buf.Handle().(int)
}

func TestCreateFailsWithoutDevices(t *testing.T) {
	_, err := Create[fr.Element, *fr.Element](descriptor.BN254Fr, nil, nil)
	require.ErrorIs(t, err, gpuerr.ErrGpuTools)
}

func TestCreateRejectsMismatchedCounts(t *testing.T) {
	device := gpuprogram.Device{Name: "fake0"}
	_, err := Create[fr.Element, *fr.Element](descriptor.BN254Fr, []gpuprogram.Program{newFakeProgram(device)}, nil)
	require.Error(t, err)
}

func TestFftValidatesBufferBeforeDispatch(t *testing.T) {
	device := gpuprogram.Device{Name: "fake0"}
	prog := newFakeProgram(device)
	k, err := Create[fr.Element, *fr.Element](descriptor.BN254Fr, []gpuprogram.Program{prog}, []gpuprogram.Device{device})
	require.NoError(t, err)

	buf := make([]fr.Element, 3) // not a power of two
	var omega fr.Element
	omega.SetOne()
	err = k.Fft(context.Background(), buf, &omega, 2)
	require.ErrorIs(t, err, gpuerr.ErrSimple)
	require.Empty(t, prog.runLog, "dispatch must not launch any kernel when validation fails")
}

func TestFftRoundTripsThroughFakeDevice(t *testing.T) {
	device := gpuprogram.Device{Name: "fake0"}
	prog := newFakeProgram(device)
	k, err := Create[fr.Element, *fr.Element](descriptor.BN254Fr, []gpuprogram.Program{prog}, []gpuprogram.Device{device})
	require.NoError(t, err)

	const logN = uint32(3)
	buf := make([]fr.Element, 1<<logN)
	for i := range buf {
		buf[i].SetUint64(uint64(i + 1))
	}
	original := append([]fr.Element(nil), buf...)

	omega, err := descriptor.BN254RootOfUnity(uint64(logN))
	require.NoError(t, err)

	require.NoError(t, k.Fft(context.Background(), buf, &omega, logN))
	for i := range buf {
		require.True(t, buf[i].Equal(&original[i]), "no-op kernel must leave values unchanged, index %d", i)
	}
	require.Len(t, prog.runLog, int(logN)+1, "log_n radix rounds plus one bit-reverse pass")
}

func TestFftObservesCancellationBetweenRounds(t *testing.T) {
	device := gpuprogram.Device{Name: "fake0"}
	prog := newFakeProgram(device)
	k, err := Create[fr.Element, *fr.Element](descriptor.BN254Fr, []gpuprogram.Program{prog}, []gpuprogram.Device{device})
	require.NoError(t, err)

	buf := make([]fr.Element, 4)
	var omega fr.Element
	omega.SetOne()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = k.Fft(ctx, buf, &omega, 2)
	require.ErrorIs(t, err, gpuerr.ErrAborted)
}

func TestFftManyRejectsMismatchedLengths(t *testing.T) {
	device := gpuprogram.Device{Name: "fake0"}
	prog := newFakeProgram(device)
	k, err := Create[fr.Element, *fr.Element](descriptor.BN254Fr, []gpuprogram.Program{prog}, []gpuprogram.Device{device})
	require.NoError(t, err)

	err = k.FftMany(context.Background(), [][]fr.Element{make([]fr.Element, 2)}, []fr.Element{}, []uint32{1})
	require.ErrorIs(t, err, gpuerr.ErrSimple)
}

func TestFftManyRoundRobinsAcrossDevices(t *testing.T) {
	deviceA := gpuprogram.Device{Name: "fake0"}
	deviceB := gpuprogram.Device{Name: "fake1"}
	progA := newFakeProgram(deviceA)
	progB := newFakeProgram(deviceB)
	k, err := Create[fr.Element, *fr.Element](descriptor.BN254Fr, []gpuprogram.Program{progA, progB}, []gpuprogram.Device{deviceA, deviceB})
	require.NoError(t, err)

	bufs := make([][]fr.Element, 4)
	omegas := make([]fr.Element, 4)
	logNs := make([]uint32, 4)
	for i := range bufs {
		bufs[i] = make([]fr.Element, 2)
		bufs[i][0].SetUint64(uint64(i))
		omegas[i].SetOne()
		logNs[i] = 1
	}

	require.NoError(t, k.FftMany(context.Background(), bufs, omegas, logNs))
	require.NotEmpty(t, progA.runLog)
	require.NotEmpty(t, progB.runLog)
}
