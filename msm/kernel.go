package msm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bits-and-blooms/bitset"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/consensys/gnark-gpu/descriptor"
	"github.com/consensys/gnark-gpu/gpuerr"
	"github.com/consensys/gnark-gpu/gpuprogram"
	"github.com/consensys/gnark-gpu/threadpool"
)

// Kernel is a GPU Pippenger MSM engine, generic over the scalar field S and
// the curve's projective/Jacobian accumulator type C (spec §4.7). The
// affine base type is a type parameter of Multiexp rather than of Kernel,
// the same split package ntt uses for CurveFft, since a curve's affine
// wire form is independent of the arithmetic Kernel needs from C.
type Kernel[S any, PS descriptor.Field[S], C any, PC descriptor.Curve[C]] struct {
	descriptor *descriptor.FieldCurveDescriptor
	programs   []gpuprogram.Program
	devices    []gpuprogram.Device
	elemBytes  int
	log        zerolog.Logger
}

// Create builds a Kernel from one compiled Program per device. As with
// package ntt, an empty device/program list fails fast with gpuerr.GpuTools
// instead of silently falling back to NaiveMultiexp (spec §7).
func Create[S any, PS descriptor.Field[S], C any, PC descriptor.Curve[C]](desc *descriptor.FieldCurveDescriptor, programs []gpuprogram.Program, devices []gpuprogram.Device) (*Kernel[S, PS, C, PC], error) {
	if len(devices) == 0 || len(programs) == 0 {
		return nil, gpuerr.WrapGpuTools("msm: no GPU devices/programs available", nil)
	}
	if len(programs) != len(devices) {
		return nil, gpuerr.Simplef("msm: %d programs but %d devices", len(programs), len(devices))
	}
	return &Kernel[S, PS, C, PC]{
		descriptor: desc,
		programs:   programs,
		devices:    devices,
		elemBytes:  desc.Limbs * 8,
		log:        log.With().Str("component", "msm").Str("descriptor", desc.Identifier).Logger(),
	}, nil
}

// deviceShare is a contiguous index range [start, end) of the scalar/base
// vectors assigned to one device, sized proportionally to that device's
// Weight (spec §4.7 "Multi-device split": "contiguous weighted slices").
type deviceShare struct {
	device gpuprogram.Device
	prog   gpuprogram.Program
	start  int
	end    int
}

func splitByWeight(devices []gpuprogram.Device, programs []gpuprogram.Program, n int) []deviceShare {
	totalWeight := 0.0
	for _, d := range devices {
		w := d.Weight
		if w <= 0 {
			w = 1
		}
		totalWeight += w
	}
	shares := make([]deviceShare, len(devices))
	pos := 0
	for i, d := range devices {
		w := d.Weight
		if w <= 0 {
			w = 1
		}
		count := int(float64(n) * w / totalWeight)
		if i == len(devices)-1 {
			count = n - pos
		}
		shares[i] = deviceShare{device: d, prog: programs[i], start: pos, end: pos + count}
		pos += count
	}
	return shares
}

// Multiexp computes Σ scalars[i]·bases.Bases()[i] using the Pippenger
// bucket method, partitioning bases.Bases()/scalars across k's devices as
// contiguous weighted slices and summing the per-device partial results on
// the host.
//
// A is the curve's affine type; encodeAffine/decodeJac give the wire
// encoding for A and C the same way ntt.CurveFft's closures do.
func Multiexp[S any, PS descriptor.Field[S], C any, PC descriptor.Curve[C], A any](k *Kernel[S, PS, C, PC], ctx context.Context, pool *threadpool.Pool, bases *BaseSlice[A], scalars []S, encodeAffine func(*A) []byte, decodeJac func([]byte) C) (C, error) {
	var zero C
	n := bases.Len()
	if n != len(scalars) {
		return zero, gpuerr.Simplef("msm: multiexp requires len(bases) == len(scalars), got %d/%d", n, len(scalars))
	}
	if n == 0 {
		return zero, nil
	}

	c := WindowWidth(n)
	numWindows := NumWindows(k.descriptor.NumBits, c)
	k.log.Debug().Int("n", n).Int("window_width", c).Int("num_windows", numWindows).Msg("dispatching multiexp")

	shares := splitByWeight(k.devices, k.programs, n)
	affine := bases.Bases()

	partials := make([]C, len(shares))
	errs := make([]error, len(shares))
	done := make(chan int, len(shares))
	for i, share := range shares {
		i, share := i, share
		go func() {
			if share.end <= share.start {
				done <- i
				return
			}
			result, err := dispatchDevice[S, PS, C, PC, A](k, ctx, share, affine[share.start:share.end], scalars[share.start:share.end], c, numWindows, encodeAffine, decodeJac, pool)
			partials[i], errs[i] = result, err
			done <- i
		}()
	}
	for range shares {
		<-done
	}
	for _, err := range errs {
		if err != nil {
			return zero, err
		}
	}

	var acc C
	for i := range partials {
		if shares[i].end <= shares[i].start {
			continue
		}
		PC(&acc).Add(&acc, &partials[i])
	}
	return acc, nil
}

// dispatchDevice runs bucket accumulation and bucket reduction on one
// device for its share of the input, reads back the W window sums, and
// recombines them on the host with the 2^c-weighted Horner step (spec
// §4.7 step 4: "result = Σ S_w · 2^(c·w)", computed as repeated
// double-by-c-then-add from the most significant window down).
func dispatchDevice[S any, PS descriptor.Field[S], C any, PC descriptor.Curve[C], A any](k *Kernel[S, PS, C, PC], ctx context.Context, share deviceShare, affine []A, scalars []S, c, numWindows int, encodeAffine func(*A) []byte, decodeJac func([]byte) C, pool *threadpool.Pool) (C, error) {
	var zero C
	n := len(affine)
	prog, device := share.prog, share.device

	basesSrc := make([]byte, 0, n*len(encodeAffine(&affine[0])))
	for i := range affine {
		basesSrc = append(basesSrc, encodeAffine(&affine[i])...)
	}
	elemBytes := len(basesSrc) / n

	scalarsSrc := make([]byte, n*k.elemBytes)
	for i := range scalars {
		var e big.Int
		PS(&scalars[i]).BigInt(&e)
		b := e.Bytes()
		off := i * k.elemBytes
		copy(scalarsSrc[off+k.elemBytes-len(b):off+k.elemBytes], b)
	}

	numBuckets := (1 << uint(c)) - 1

	basesBuf, err := prog.Alloc(n, elemBytes)
	if err != nil {
		return zero, gpuerr.WrapGpuTools("msm: allocating base buffer", err)
	}
	scalarsBuf, err := prog.Alloc(n, k.elemBytes)
	if err != nil {
		return zero, gpuerr.WrapGpuTools("msm: allocating scalar buffer", err)
	}
	bucketsBuf, err := prog.Alloc(numWindows*numBuckets, elemBytes)
	if err != nil {
		return zero, gpuerr.WrapGpuTools("msm: allocating bucket table", err)
	}
	windowSumsBuf, err := prog.Alloc(numWindows, elemBytes)
	if err != nil {
		return zero, gpuerr.WrapGpuTools("msm: allocating window-sum buffer", err)
	}

	k.log.Debug().Int("n", n).Str("device", device.Name).Int("buckets", numWindows*numBuckets).Msg("dispatching msm share")

	if err := prog.Write(basesBuf, basesSrc); err != nil {
		return zero, gpuerr.WrapGpuTools("msm: uploading bases", err)
	}
	if err := prog.Write(scalarsBuf, scalarsSrc); err != nil {
		return zero, gpuerr.WrapGpuTools("msm: uploading scalars", err)
	}

	// bucket_acc/bucket_reduce each parallelize one thread per window, so
	// their launch width is numWindows, not n.
	prefix := k.descriptor.Identifier
	if err := prog.Run(fmt.Sprintf("%s_bucket_acc", prefix), numWindows, 0, basesBuf, scalarsBuf, bucketsBuf, c, numWindows, n); err != nil {
		return zero, gpuerr.WrapGpuTools("msm: launching bucket accumulation", err)
	}

	select {
	case <-ctx.Done():
		return zero, gpuerr.NewAborted()
	default:
	}

	// occupancy holds one bit per window, set when at least one scalar has
	// a nonzero c-bit chunk in that window. The bucket_reduce launch below
	// still covers every window; on the host, an all-clear window's sum is
	// neither decoded nor added into the result (only the c doublings are
	// applied for it). The per-window scan is independent work over a
	// contiguous range, so it fans out with threadpool.Execute rather
	// than Pool.Scope: there is no closure-local state to borrow, just
	// [0, numWindows) split into ranges.
	windowHasWork := make([]bool, numWindows)
	threadpool.Execute(numWindows, func(start, end int) {
		for w := start; w < end; w++ {
			for i := range scalars {
				var e big.Int
				PS(&scalars[i]).BigInt(&e)
				if chunkAt(&e, w, c) != 0 {
					windowHasWork[w] = true
					break
				}
			}
		}
	}, pool.Size())

	occupancy := bitset.New(uint(numWindows))
	for w, has := range windowHasWork {
		if has {
			occupancy.Set(uint(w))
		}
	}

	if err := prog.Run(fmt.Sprintf("%s_bucket_reduce", prefix), numWindows, 0, bucketsBuf, windowSumsBuf, c, numWindows); err != nil {
		return zero, gpuerr.WrapGpuTools("msm: launching bucket reduction", err)
	}

	windowSumsRaw := make([]byte, numWindows*elemBytes)
	if err := prog.Read(windowSumsBuf, windowSumsRaw); err != nil {
		return zero, gpuerr.WrapGpuTools("msm: reading window sums", err)
	}

	var acc C
	for w := numWindows - 1; w >= 0; w-- {
		select {
		case <-ctx.Done():
			return zero, gpuerr.NewAborted()
		default:
		}
		for i := 0; i < c; i++ {
			PC(&acc).Double(&acc)
		}
		if !occupancy.Test(uint(w)) {
			continue
		}
		windowSum := decodeJac(windowSumsRaw[w*elemBytes : (w+1)*elemBytes])
		PC(&acc).Add(&acc, &windowSum)
	}

	return acc, nil
}

// chunkAt extracts the unsigned c-bit chunk of e at window w (spec §4.7
// step 1: "for each (i, w) extract the unsigned c-bit chunk d_{i,w}").
func chunkAt(e *big.Int, w, c int) uint64 {
	shifted := new(big.Int).Rsh(e, uint(w*c))
	mask := new(big.Int).Lsh(big.NewInt(1), uint(c))
	mask.Sub(mask, big.NewInt(1))
	shifted.And(shifted, mask)
	return shifted.Uint64()
}
