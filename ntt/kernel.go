// Package ntt is the GPU NTT kernel engine (spec §4.6): it uploads
// coefficients and a precomputed twiddle table to a device, runs log_n
// radix-2 rounds followed by a bit-reverse pass, and reads the result back.
// A batched call (FftMany) round-robins independent transforms across the
// available devices so that K devices with M transforms each run
// approximately M/K transforms concurrently.
//
// The external API shape (Create, Fft, FftMany) is grounded on
// original_source/gpu-ark-tests/tests/fftg.rs (FftGKernel::create,
// radix_fftg_many); the upload/dispatch/readback adapter pattern is
// grounded on backend/groth16/bn254/goicicle_wrapper.go's
// NttBN254GnarkAdapter.
package ntt

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/consensys/gnark-gpu/cpufft"
	"github.com/consensys/gnark-gpu/descriptor"
	"github.com/consensys/gnark-gpu/gpuerr"
	"github.com/consensys/gnark-gpu/gpuprogram"
)

// Kernel is a GPU NTT engine for scalar-field elements of type S. Curve
// transforms are driven through the package-level CurveFft function, which
// reuses a Kernel's devices/programs but takes explicit byte-codec
// closures for the curve type (see CurveFft for why).
type Kernel[S any, PS descriptor.Field[S]] struct {
	descriptor *descriptor.FieldCurveDescriptor
	programs   []gpuprogram.Program
	devices    []gpuprogram.Device
	elemBytes  int
	log        zerolog.Logger
}

// Create builds a Kernel from one compiled Program per device. It fails
// with gpuerr.GpuTools if no devices/programs are available — there is no
// automatic CPU fallback (spec §7); callers that want CPU execution use
// package cpufft directly.
func Create[S any, PS descriptor.Field[S]](desc *descriptor.FieldCurveDescriptor, programs []gpuprogram.Program, devices []gpuprogram.Device) (*Kernel[S, PS], error) {
	if len(devices) == 0 || len(programs) == 0 {
		return nil, gpuerr.WrapGpuTools("ntt: no GPU devices/programs available", nil)
	}
	if len(programs) != len(devices) {
		return nil, gpuerr.Simplef("ntt: %d programs but %d devices", len(programs), len(devices))
	}
	return &Kernel[S, PS]{
		descriptor: desc,
		programs:   programs,
		devices:    devices,
		elemBytes:  desc.Limbs * 8,
		log:        log.With().Str("component", "ntt").Str("descriptor", desc.Identifier).Logger(),
	}, nil
}

// Fft runs the scalar-field NTT of buf in place on the first available
// device. len(buf) must be 2^logN and logN must not exceed the
// descriptor's two-adicity (spec §7 pre-call validation).
func (k *Kernel[S, PS]) Fft(ctx context.Context, buf []S, omega *S, logN uint32) error {
	if err := cpufft.ValidateBuffer(len(buf), logN, k.descriptor.TwoAdicity); err != nil {
		return err
	}
	src := k.marshalScalars(buf)
	out, err := k.dispatch(ctx, k.devices[0], k.programs[0], src, omega, logN, false)
	if err != nil {
		return err
	}
	k.unmarshalScalars(out, buf)
	return nil
}

// FftMany runs len(bufs) independent scalar-field transforms, round-robin
// assigning each to one of k's devices so K devices with M transforms each
// run roughly M/K transforms concurrently (spec §4.6 "Batched mode"). All
// three slices must have equal length (spec §7).
func (k *Kernel[S, PS]) FftMany(ctx context.Context, bufs [][]S, omegas []S, logNs []uint32) error {
	if len(bufs) != len(omegas) || len(bufs) != len(logNs) {
		return gpuerr.Simplef("ntt: fft_many requires equal-length bufs/omegas/log_ns, got %d/%d/%d", len(bufs), len(omegas), len(logNs))
	}
	for i := range bufs {
		if err := cpufft.ValidateBuffer(len(bufs[i]), logNs[i], k.descriptor.TwoAdicity); err != nil {
			return err
		}
	}

	numDevices := len(k.devices)
	errs := make([]error, len(bufs))
	outs := make([][]byte, len(bufs))
	done := make(chan int, numDevices)
	for d := 0; d < numDevices; d++ {
		d := d
		go func() {
			// transforms d, d+numDevices, ... run one after another on device d
			for i := d; i < len(bufs); i += numDevices {
				src := k.marshalScalars(bufs[i])
				outs[i], errs[i] = k.dispatch(ctx, k.devices[d], k.programs[d], src, &omegas[i], logNs[i], false)
			}
			done <- d
		}()
	}
	for d := 0; d < numDevices; d++ {
		<-done
	}
	for i, err := range errs {
		if err != nil {
			return err
		}
		k.unmarshalScalars(outs[i], bufs[i])
	}
	return nil
}

// dispatch uploads src and the twiddle table, runs log_n radix-2 rounds
// swapping buffer roles each round, bit-reverses, and reads back. It checks
// ctx between rounds so a cancellation is observed at a round boundary
// (spec §5 "cooperative" cancellation): an in-flight launch is allowed to
// finish, but no further round starts.
func (k *Kernel[S, PS]) dispatch(ctx context.Context, device gpuprogram.Device, prog gpuprogram.Program, src []byte, omega *S, logN uint32, curve bool) ([]byte, error) {
	n := len(src) / k.elemBytes
	half := n / 2
	if half < 1 {
		half = 1
	}

	a, err := prog.Alloc(n, k.elemBytes)
	if err != nil {
		return nil, gpuerr.WrapGpuTools("ntt: allocating coefficient buffer", err)
	}
	b, err := prog.Alloc(n, k.elemBytes)
	if err != nil {
		return nil, gpuerr.WrapGpuTools("ntt: allocating scratch buffer", err)
	}
	// The twiddle table always holds scalar-field elements (spec §4.6's
	// twiddles are powers of the root of unity, never curve points), so
	// its element size is the descriptor's own, not k.elemBytes — which
	// CurveFft temporarily overrides to the curve's wire size for a/b.
	scalarElemBytes := k.descriptor.Limbs * 8
	twiddles, err := prog.Alloc(half, scalarElemBytes)
	if err != nil {
		return nil, gpuerr.WrapGpuTools("ntt: allocating twiddle table", err)
	}

	kind := "scalar_ntt"
	if curve {
		kind = "curve_ntt"
	}
	k.log.Debug().Str("kind", kind).Int("n", n).Str("device", device.Name).Msg("dispatching ntt")

	if err := prog.Write(a, src); err != nil {
		return nil, gpuerr.WrapGpuTools("ntt: uploading coefficients", err)
	}
	// twiddles[j] = omega^j for j in [0, half) (spec §4.6: "a precomputed
	// twiddle table"), computed once on the host with the field's own Mul
	// rather than shipped to the device as repeated exponentiations.
	table := make([]S, half)
	PS(&table[0]).SetOne()
	for j := 1; j < half; j++ {
		PS(&table[j]).Mul(&table[j-1], omega)
	}
	if err := prog.Write(twiddles, marshalFieldElems[S, PS](table, scalarElemBytes)); err != nil {
		return nil, gpuerr.WrapGpuTools("ntt: uploading twiddle table", err)
	}

	kernelPrefix := k.descriptor.Identifier
	cur, scratch := a, b
	for round := uint32(0); round < logN; round++ {
		select {
		case <-ctx.Done():
			return nil, gpuerr.NewAborted()
		default:
		}
		kernelName := fmt.Sprintf("%s_radix_fft_round", kernelPrefix)
		if err := prog.Run(kernelName, n/2, 0, cur, scratch, twiddles, round, logN); err != nil {
			return nil, gpuerr.WrapGpuTools("ntt: launching radix round", err)
		}
		cur, scratch = scratch, cur
	}

	if err := prog.Run(fmt.Sprintf("%s_bit_reverse", kernelPrefix), n, 0, cur, logN); err != nil {
		return nil, gpuerr.WrapGpuTools("ntt: launching bit-reverse", err)
	}

	out := make([]byte, len(src))
	if err := prog.Read(cur, out); err != nil {
		return nil, gpuerr.WrapGpuTools("ntt: reading back result", err)
	}
	return out, nil
}

// CurveFft runs the curve-group NTT of buf in place, reusing k's
// devices/programs but with the curve_ntt kernel family. It takes explicit
// encode/decode closures rather than a generic byte-codec constraint
// because the wire format for a curve element (two field elements plus an
// infinity flag, spec §6) is a property of the concrete curve, not of the
// abstract descriptor.Curve contract.
func CurveFft[S any, PS descriptor.Field[S], C any](k *Kernel[S, PS], ctx context.Context, buf []C, omega *S, logN uint32, encode func(*C) []byte, decode func([]byte) C) error {
	if err := cpufft.ValidateBuffer(len(buf), logN, k.descriptor.TwoAdicity); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}
	elemBytes := len(encode(&buf[0]))
	src := make([]byte, 0, len(buf)*elemBytes)
	for i := range buf {
		src = append(src, encode(&buf[i])...)
	}
	savedElemBytes := k.elemBytes
	k.elemBytes = elemBytes
	out, err := k.dispatch(ctx, k.devices[0], k.programs[0], src, omega, logN, true)
	k.elemBytes = savedElemBytes
	if err != nil {
		return err
	}
	for i := range buf {
		buf[i] = decode(out[i*elemBytes : (i+1)*elemBytes])
	}
	return nil
}

func (k *Kernel[S, PS]) marshalScalars(buf []S) []byte {
	return marshalFieldElems[S, PS](buf, k.elemBytes)
}

func (k *Kernel[S, PS]) unmarshalScalars(src []byte, buf []S) {
	for i := range buf {
		var e big.Int
		e.SetBytes(src[i*k.elemBytes : (i+1)*k.elemBytes])
		PS(&buf[i]).SetBigInt(&e)
	}
}

// marshalFieldElems is the free-function form of marshalScalars: it takes
// elemBytes explicitly rather than through a Kernel receiver, since the
// twiddle table is always scalar-field-sized even when a Kernel's own
// elemBytes has been temporarily overridden for a curve transform.
func marshalFieldElems[S any, PS descriptor.Field[S]](buf []S, elemBytes int) []byte {
	out := make([]byte, len(buf)*elemBytes)
	for i := range buf {
		var e big.Int
		PS(&buf[i]).BigInt(&e)
		b := e.Bytes()
		copy(out[(i+1)*elemBytes-len(b):(i+1)*elemBytes], b)
	}
	return out
}
