//go:build cuda

package gpuprogram

import (
	"fmt"
	"math/big"
	"strings"
	"unsafe"

	goicicle "github.com/ingonyama-zk/icicle/goicicle"
	icicle "github.com/ingonyama-zk/icicle/goicicle/curves/bn254"
)

// cudaProgram drives an NTT/MSM kernel set through icicle's goicicle CUDA
// bindings, the same package the teacher imports directly in
// backend/groth16/bn254/goicicle_wrapper.go. goicicle exposes whole-transform
// entry points (NttBN254 runs every radix round in one call; MsmBN254 runs
// the full multiexp in one call) rather than a named-kernel-launch ABI that
// could be driven one round or one bucket window at a time, so Run folds the
// per-round/per-window calls sourcegen's OpenCL kernels are dispatched with
// down onto the matching single icicle call.
type cudaProgram struct {
	device Device
}

func devices() []Device {
	count, err := goicicle.GetDeviceCount()
	if err != nil || count <= 0 {
		return nil
	}
	out := make([]Device, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, Device{Kind: KindCUDA, Index: i, Name: fmt.Sprintf("cuda:%d", i), Weight: 1})
	}
	return out
}

func load(device Device, src Source) (Program, error) {
	if device.Kind != KindCUDA {
		return nil, newGpuToolsErr("cuda backend cannot load a non-CUDA device")
	}
	if err := goicicle.CudaSetDevice(device.Index); err != nil {
		return nil, newGpuToolsErr(fmt.Sprintf("cuda: setting device %d", device.Index))
	}
	return &cudaProgram{device: device}, nil
}

func (p *cudaProgram) Device() Device { return p.device }

func (p *cudaProgram) Alloc(n, elemBytes int) (DeviceBuffer, error) {
	ptr, err := goicicle.CudaMalloc(n * elemBytes)
	if err != nil {
		return DeviceBuffer{}, newGpuToolsErr("cuda: device allocation failed")
	}
	return DeviceBuffer{device: p.device, elemBytes: elemBytes, len: n, handle: ptr}, nil
}

func (p *cudaProgram) Write(buf DeviceBuffer, host []byte) error {
	ptr, ok := buf.handle.(unsafe.Pointer)
	if !ok {
		return newGpuToolsErr("cuda: invalid buffer handle")
	}
	if goicicle.CudaMemCpyHtoD[byte](ptr, host, len(host)) != nil {
		return newGpuToolsErr("cuda: host-to-device copy failed")
	}
	return nil
}

func (p *cudaProgram) Read(buf DeviceBuffer, host []byte) error {
	ptr, ok := buf.handle.(unsafe.Pointer)
	if !ok {
		return newGpuToolsErr("cuda: invalid buffer handle")
	}
	if goicicle.CudaMemCpyDtoH[byte](host, ptr, len(host)) != nil {
		return newGpuToolsErr("cuda: device-to-host copy failed")
	}
	return nil
}

func (p *cudaProgram) DeviceMemBytes() uint64 { return p.device.MemByte }

func (p *cudaProgram) Close() error { return nil }

// scalarField reinterprets a scalar DeviceBuffer's CUDA allocation as an
// icicle.ScalarField slice; iciclegnark's conversion helpers operate on
// gnark-crypto element values directly rather than raw CUDA allocations, so
// the scalar/point layout below is bridged by hand the way goicicle's own
// examples cast a CudaMalloc pointer to a typed slice.
func scalarField(buf DeviceBuffer) []icicle.ScalarField {
	return unsafe.Slice((*icicle.ScalarField)(buf.handle.(unsafe.Pointer)), buf.len)
}

func pointField(buf DeviceBuffer) []icicle.PointAffineNoInfinityBN254 {
	return unsafe.Slice((*icicle.PointAffineNoInfinityBN254)(buf.handle.(unsafe.Pointer)), buf.len)
}

func deviceBufferArg(args []any, i int) (DeviceBuffer, bool) {
	if i >= len(args) {
		return DeviceBuffer{}, false
	}
	b, ok := args[i].(DeviceBuffer)
	return b, ok
}

func intArg(args []any, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case int:
		return v, true
	case uint32:
		return int(v), true
	}
	return 0, false
}

// Run dispatches the radix-2 NTT round and MSM bucket kernels sourcegen
// generates onto icicle's curve-specific entry points. icicle computes the
// whole transform (or the whole multiexp) in a single call, so the work is
// done once, on the first round/window in the loop, and later launches in
// the same sequence are no-ops.
func (p *cudaProgram) Run(kernelName string, globalWork, localWork int, args ...any) error {
	switch {
	case strings.HasSuffix(kernelName, "_radix_fft_round"):
		cur, ok := deviceBufferArg(args, 0)
		round, okRound := intArg(args, 3)
		if !ok || !okRound {
			return newGpuToolsErr("cuda: ntt kernel argument mismatch")
		}
		if round != 0 {
			return nil
		}
		scalars := scalarField(cur)
		if _, err := icicle.NttBN254(&scalars, false, icicle.DIF, p.device.Index); err != nil {
			return newGpuToolsErr("cuda: ntt launch failed")
		}
		return nil

	case strings.HasSuffix(kernelName, "_bit_reverse"):
		// icicle.NttBN254 already returns natural order; the explicit
		// bit-reverse launch the OpenCL backend needs is a no-op here.
		return nil

	case strings.HasSuffix(kernelName, "_bucket_acc"):
		bases, okB := deviceBufferArg(args, 0)
		scalars, okS := deviceBufferArg(args, 1)
		buckets, okBuf := deviceBufferArg(args, 2)
		c, okC := intArg(args, 3)
		numWindows, okW := intArg(args, 4)
		if !okB || !okS || !okBuf || !okC || !okW {
			return newGpuToolsErr("cuda: msm kernel argument mismatch")
		}
		scalarBytes := make([]byte, scalars.len*scalars.elemBytes)
		if err := p.Read(scalars, scalarBytes); err != nil {
			return err
		}
		points := pointField(bases)
		numBuckets := buckets.len / numWindows
		out := pointField(buckets)
		for w := 0; w < numWindows; w++ {
			chunkBytes := chunkScalarBytes(scalarBytes, scalars.len, scalars.elemBytes, w, c)
			chunkBuf, err := p.Alloc(scalars.len, scalars.elemBytes)
			if err != nil {
				return err
			}
			if err := p.Write(chunkBuf, chunkBytes); err != nil {
				return err
			}
			var sum icicle.PointBN254
			if _, err := icicle.MsmBN254(&sum, points, scalarField(chunkBuf), 0); err != nil {
				return newGpuToolsErr("cuda: msm launch failed")
			}
			out[w*numBuckets] = *(*icicle.PointAffineNoInfinityBN254)(unsafe.Pointer(&sum))
		}
		return nil

	case strings.HasSuffix(kernelName, "_bucket_reduce"):
		buckets, okBuf := deviceBufferArg(args, 0)
		sums, okSums := deviceBufferArg(args, 1)
		numWindows, okW := intArg(args, 3)
		if !okBuf || !okSums || !okW {
			return newGpuToolsErr("cuda: msm reduce argument mismatch")
		}
		numBuckets := buckets.len / numWindows
		src := pointField(buckets)
		dst := pointField(sums)
		for w := 0; w < numWindows; w++ {
			dst[w] = src[w*numBuckets]
		}
		return nil

	default:
		return newGpuToolsErr(fmt.Sprintf("cuda: unknown kernel %q", kernelName))
	}
}

// chunkScalarBytes rebuilds a scalar buffer holding only the unsigned c-bit
// chunk of each scalar at window w, matching msm.chunkAt's extraction, so a
// whole-multiexp icicle call over the chunked scalars reproduces the same
// per-window bucket sum a dedicated bucket kernel would have accumulated.
// Operating on the big-endian element encoding directly (rather than on
// icicle.ScalarField, whose internal Montgomery layout this package does not
// assume) keeps the translation grounded in the encoding this engine already
// controls end to end.
func chunkScalarBytes(src []byte, n, elemBytes, w, c int) []byte {
	out := make([]byte, len(src))
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(c)), big.NewInt(1))
	for i := 0; i < n; i++ {
		off := i * elemBytes
		var e big.Int
		e.SetBytes(src[off : off+elemBytes])
		chunk := new(big.Int).Rsh(&e, uint(w*c))
		chunk.And(chunk, mask)
		b := chunk.Bytes()
		copy(out[off+elemBytes-len(b):off+elemBytes], b)
	}
	return out
}
