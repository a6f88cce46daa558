// Package cpufft is the CPU reference implementation of the scalar-field
// and curve-group NTT (spec §4.5): a serial radix-2 Cooley-Tukey transform
// and a parallel log-decomposed variant built on top of it. It is the
// correctness oracle the GPU kernels in ntt/ are checked against, and it is
// exposed as its own entry point rather than as an automatic fallback
// inside ntt.Kernel (spec §7).
//
// The iterative butterfly/stride decomposition below follows
// original_source/ec-gpu-proxy/src/ec_fft_cpu.rs (serial_ec_fft /
// parallel_ec_fft) rather than gnark-crypto's own recursive DIF/DIT split
// (other_examples/..._fft.go.go), because it is what spec §4.5 describes
// step by step. Bit-reversal and the pool-based fan-out otherwise follow
// gnark-crypto's BitReverse and the teacher's Execute-style chunking.
package cpufft

import (
	"github.com/consensys/gnark-gpu/descriptor"
	"github.com/consensys/gnark-gpu/gpuerr"
	"github.com/consensys/gnark-gpu/threadpool"
)

// BitReverse returns the log-bit reversal of n within a width-l index
// space. bitreverse(bitreverse(k, l), l) == k for every k < 2^l (spec §8).
func BitReverse(n uint32, l uint32) uint32 {
	var r uint32
	for i := uint32(0); i < l; i++ {
		r = (r << 1) | (n & 1)
		n >>= 1
	}
	return r
}

func bitReversePermute[T any, PT descriptor.Field[T]](a []T) {
	n := uint32(len(a))
	logN := uint32(0)
	for (uint32(1) << logN) < n {
		logN++
	}
	for k := uint32(0); k < n; k++ {
		rk := BitReverse(k, logN)
		if k < rk {
			a[k], a[rk] = a[rk], a[k]
		}
	}
}

func powVartime[T any, PT descriptor.Field[T]](base *T, exp uint64) T {
	var res T
	PT(&res).SetOne()
	b := *base
	for e := exp; e != 0; e >>= 1 {
		if e&1 == 1 {
			PT(&res).Mul(&res, &b)
		}
		PT(&b).Mul(&b, &b)
	}
	return res
}

// SerialFFT computes the in-place radix-2 Cooley-Tukey transform of a with
// root of unity omega, where len(a) == 2^logN. a must have power-of-two
// length equal to 2^logN; violating that is a programmer error (spec §4.5
// "asserts on length mismatch are programmer errors") and panics rather
// than returning an error, matching the Rust `assert_eq!` it is grounded
// on.
func SerialFFT[T any, PT descriptor.Field[T]](a []T, omega *T, logN uint32) {
	n := uint32(len(a))
	if n != 1<<logN {
		panic("cpufft: buffer length does not match 2^log_n")
	}
	if n <= 1 {
		return
	}

	bitReversePermute[T, PT](a)

	for m := uint32(1); m < n; m *= 2 {
		wM := powVartime[T, PT](omega, uint64(n/(2*m)))
		for k := uint32(0); k < n; k += 2 * m {
			var w T
			PT(&w).SetOne()
			for j := uint32(0); j < m; j++ {
				var t T
				PT(&t).Mul(&a[k+j+m], &w)

				var lo T
				PT(&lo).Set(&a[k+j])

				PT(&a[k+j+m]).Sub(&lo, &t)
				PT(&a[k+j]).Add(&lo, &t)

				PT(&w).Mul(&w, &wM)
			}
		}
	}
}

// ParallelFFT computes the same transform as SerialFFT but fans out across
// 2^logThreads goroutines via pool. logThreads must not exceed logN (spec
// §4.5).
func ParallelFFT[T any, PT descriptor.Field[T]](a []T, pool *threadpool.Pool, omega *T, logN, logThreads uint32) {
	n := uint32(len(a))
	if n != 1<<logN {
		panic("cpufft: buffer length does not match 2^log_n")
	}
	if logThreads == 0 || logThreads > logN {
		SerialFFT[T, PT](a, omega, logN)
		return
	}

	numThreads := uint32(1) << logThreads
	logNewN := logN - logThreads
	newN := uint32(1) << logNewN

	sub := make([][]T, numThreads)
	for j := range sub {
		sub[j] = make([]T, newN)
	}

	newOmega := powVartime[T, PT](omega, uint64(numThreads))

	pool.Scope(0, func(s *threadpool.Scope, _ int) {
		for j := uint32(0); j < numThreads; j++ {
			j := j
			s.Execute(func() {
				omegaJ := powVartime[T, PT](omega, uint64(j))
				omegaStep := powVartime[T, PT](omega, uint64(j)<<logNewN)

				var elt T
				PT(&elt).SetOne()

				dst := sub[j]
				for i := uint32(0); i < newN; i++ {
					for sIdx := uint32(0); sIdx < numThreads; sIdx++ {
						idx := (i + (sIdx << logNewN)) % n
						var t T
						PT(&t).Mul(&a[idx], &elt)
						PT(&dst[i]).Add(&dst[i], &t)
						PT(&elt).Mul(&elt, &omegaStep)
					}
					PT(&elt).Mul(&elt, &omegaJ)
				}

				SerialFFT[T, PT](dst, &newOmega, logNewN)
			})
		}
	})

	mask := numThreads - 1
	pool.Scope(int(n), func(s *threadpool.Scope, chunk int) {
		if chunk <= 0 {
			chunk = int(n)
		}
		for start := 0; start < int(n); start += chunk {
			end := start + chunk
			if end > int(n) {
				end = int(n)
			}
			start, end := start, end
			s.Execute(func() {
				for idx := start; idx < end; idx++ {
					a[idx] = sub[uint32(idx)&mask][uint32(idx)>>logThreads]
				}
			})
		}
	})
}

// ValidateBuffer performs the pre-call validation spec §7 requires for a
// single-transform fft call: buffer length must be a power of two equal to
// 2^logN, and logN must not exceed the descriptor's two-adicity.
func ValidateBuffer(bufLen int, logN uint32, twoAdicity uint64) error {
	if bufLen <= 0 || bufLen&(bufLen-1) != 0 {
		return gpuerr.Simplef("buffer length %d is not a power of two", bufLen)
	}
	if uint64(bufLen) != uint64(1)<<logN {
		return gpuerr.Simplef("buffer length %d does not equal 2^log_n (log_n=%d)", bufLen, logN)
	}
	if uint64(logN) > twoAdicity {
		return gpuerr.Simplef("log_n=%d exceeds two-adicity %d", logN, twoAdicity)
	}
	return nil
}
