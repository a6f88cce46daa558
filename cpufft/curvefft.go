package cpufft

import (
	"math/big"

	"github.com/consensys/gnark-gpu/descriptor"
	"github.com/consensys/gnark-gpu/threadpool"
)

// CurveSerialFFT is SerialFFT specialized to a curve-group coefficient type
// C whose twiddles are scalar-field elements of type S acting by scalar
// multiplication (spec §4.5 "For the curve NTT, the coefficient type is a
// projective group element and `·` is scalar-point multiplication").
func CurveSerialFFT[C any, PC descriptor.Curve[C], S any, PS descriptor.Field[S]](a []C, omega *S, logN uint32) {
	n := uint32(len(a))
	if n != 1<<logN {
		panic("cpufft: buffer length does not match 2^log_n")
	}
	if n <= 1 {
		return
	}

	bitReverseCurvePermute[C, PC](a)

	for m := uint32(1); m < n; m *= 2 {
		wM := powVartime[S, PS](omega, uint64(n/(2*m)))
		for k := uint32(0); k < n; k += 2 * m {
			var w S
			PS(&w).SetOne()
			for j := uint32(0); j < m; j++ {
				var t C
				PC(&t).Set(&a[k+j+m])
				scalarMulAssign[C, PC, S, PS](&t, &w)

				var lo C
				PC(&lo).Set(&a[k+j])

				var negT C
				PC(&negT).Neg(&t)

				PC(&a[k+j+m]).Add(&lo, &negT)
				PC(&a[k+j]).Add(&lo, &t)

				PS(&w).Mul(&w, &wM)
			}
		}
	}
}

// CurveParallelFFT is ParallelFFT specialized to curve coefficients; see
// SerialFFT/ParallelFFT for the scalar case this mirrors.
func CurveParallelFFT[C any, PC descriptor.Curve[C], S any, PS descriptor.Field[S]](a []C, pool *threadpool.Pool, omega *S, logN, logThreads uint32) {
	n := uint32(len(a))
	if n != 1<<logN {
		panic("cpufft: buffer length does not match 2^log_n")
	}
	if logThreads == 0 || logThreads > logN {
		CurveSerialFFT[C, PC, S, PS](a, omega, logN)
		return
	}

	numThreads := uint32(1) << logThreads
	logNewN := logN - logThreads
	newN := uint32(1) << logNewN

	sub := make([][]C, numThreads)
	for j := range sub {
		sub[j] = make([]C, newN)
	}

	newOmega := powVartime[S, PS](omega, uint64(numThreads))

	pool.Scope(0, func(s *threadpool.Scope, _ int) {
		for j := uint32(0); j < numThreads; j++ {
			j := j
			s.Execute(func() {
				omegaJ := powVartime[S, PS](omega, uint64(j))
				omegaStep := powVartime[S, PS](omega, uint64(j)<<logNewN)

				var elt S
				PS(&elt).SetOne()

				dst := sub[j]
				for i := uint32(0); i < newN; i++ {
					for sIdx := uint32(0); sIdx < numThreads; sIdx++ {
						idx := (i + (sIdx << logNewN)) % n
						var t C
						PC(&t).Set(&a[idx])
						scalarMulAssign[C, PC, S, PS](&t, &elt)
						PC(&dst[i]).Add(&dst[i], &t)
						PS(&elt).Mul(&elt, &omegaStep)
					}
					PS(&elt).Mul(&elt, &omegaJ)
				}

				CurveSerialFFT[C, PC, S, PS](dst, &newOmega, logNewN)
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

func bitReverseCurvePermute[C any, PC descriptor.Curve[C]](a []C) {
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

// scalarMulAssign multiplies curve point p in place by scalar field element
// s, going through big.Int since gnark-crypto's ScalarMultiplication takes
// a *big.Int rather than a field element directly.
func scalarMulAssign[C any, PC descriptor.Curve[C], S any, PS descriptor.Field[S]](p *C, s *S) {
	e := new(big.Int)
	PS(s).BigInt(e)
	PC(p).ScalarMultiplication(p, e)
}
