// Package gpuprogram defines the program-loader contract spec §4.3
// describes: given device source or a compiled binary, produce a per-device
// Program that the engine can allocate buffers on, upload/download through,
// and launch kernels against. Launch is synchronous from the engine's point
// of view; any device-side asynchrony is hidden behind a blocking readback.
//
// Production backends live behind build tags, the same way
// other_examples' nornicdb pkg/gpu/{cuda,opencl} bridges and the teacher's
// own goicicle wrapper gate their cgo dependencies: program_cuda.go (tag
// "cuda") drives github.com/ingonyama-zk/icicle's goicicle allocator,
// program_opencl.go (tag "opencl") drives a cgo OpenCL bridge, and
// program_default.go (no tag) reports zero devices so engine construction
// fails fast with gpuerr.GpuTools instead of silently downgrading to the
// CPU path (spec §7).
package gpuprogram

import (
	"github.com/consensys/gnark-gpu/gpuerr"
)

// DeviceKind distinguishes the backend a Device was enumerated from.
type DeviceKind uint8

const (
	KindCUDA DeviceKind = iota
	KindOpenCL
)

// Device identifies one physical accelerator.
type Device struct {
	Kind    DeviceKind
	Index   int
	Name    string
	MemByte uint64
	// Weight is the relative throughput used to proportion an MSM input
	// split across devices (spec §4.7 "Multi-device split"). It defaults
	// to 1 for a uniform 1:1 split.
	Weight float64
}

// Source is what Load consumes: either OpenCL text or a compiled CUDA
// fatbin, produced by package sourcegen.
type Source struct {
	OpenCLText  []byte
	CudaFatbin  []byte
	Identifier  string
}

// DeviceBuffer is an opaque device-resident allocation of n elements of a
// fixed per-element byte size. Its zero value is not usable.
type DeviceBuffer struct {
	device    Device
	elemBytes int
	len       int
	// handle is backend-specific; production backends type-assert it to
	// their own pointer/descriptor type.
	handle any
}

// Len returns the number of elements the buffer was allocated for.
func (b DeviceBuffer) Len() int { return b.len }

// Handle returns the backend-specific allocation handle, for a Program
// implementation outside this package to type-assert back to its concrete
// form (ntt's and msm's test fakes do this; program_cuda.go and
// program_opencl.go read the handle field directly).
func (b DeviceBuffer) Handle() any { return b.handle }

// NewDeviceBuffer builds a DeviceBuffer around a backend-specific handle.
// It is exported so a Program implementation outside this package — a test
// fake, or a future backend that cannot live under this package's build
// tags — can satisfy the Program interface's Alloc contract.
func NewDeviceBuffer(device Device, elemBytes, length int, handle any) DeviceBuffer {
	return DeviceBuffer{device: device, elemBytes: elemBytes, len: length, handle: handle}
}

// Program is a compiled artifact loaded onto exactly one Device, plus the
// handle used to allocate buffers on it and launch kernels (spec §4.3).
type Program interface {
	Device() Device

	// Alloc reserves space for n elements of elemBytes each.
	Alloc(n, elemBytes int) (DeviceBuffer, error)
	// Write uploads host bytes into buf. len(host) must equal
	// buf.Len()*elemBytes.
	Write(buf DeviceBuffer, host []byte) error
	// Read downloads buf back into host. len(host) must equal
	// buf.Len()*elemBytes.
	Read(buf DeviceBuffer, host []byte) error

	// Run launches kernelName with the given global/local work sizes and
	// positional device-buffer/scalar arguments, blocking until it (and
	// any device-side readback this call performs) completes.
	Run(kernelName string, globalWork, localWork int, args ...any) error

	// DeviceMemBytes reports total device memory, used to decide whether
	// an allocation should fall back to the next device (spec §7).
	DeviceMemBytes() uint64

	// Close releases every buffer and the compiled program itself.
	Close() error
}

// Devices enumerates every device visible to the current build. The
// default (no "cuda"/"opencl" build tag) build returns an empty slice.
func Devices() []Device { return devices() }

// Load compiles/loads src onto device, yielding a ready-to-use Program.
// The default build always fails with gpuerr.GpuTools: it has no backend to
// load onto.
func Load(device Device, src Source) (Program, error) { return load(device, src) }

func newGpuToolsErr(msg string) error {
	return gpuerr.WrapGpuTools(msg, nil)
}
