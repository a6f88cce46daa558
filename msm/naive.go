package msm

import (
	"math/big"

	"github.com/consensys/gnark-gpu/descriptor"
	"github.com/consensys/gnark-gpu/gpuerr"
)

// NaiveMultiexp computes Σ scalars[i]·bases[i] by plain double-and-add,
// ignoring the bucket method entirely. It exists to state spec §8's central
// correctness property as runnable code: "multiexp(bases, scalars) equals
// Σ scalars[i]·bases[i] computed by naive double-and-add" — Multiexp's
// result must agree with this for every input, bucket-method shortcuts
// aside. C is any point type satisfying descriptor.Curve, such as
// gnark-crypto's Jacobian bn254.G1Jac used by the tests.
func NaiveMultiexp[C any, PC descriptor.Curve[C], S any, PS descriptor.Field[S]](bases []C, scalars []S) (C, error) {
	var zero C
	if len(bases) != len(scalars) {
		return zero, gpuerr.Simplef("msm: naive_multiexp requires len(bases) == len(scalars), got %d/%d", len(bases), len(scalars))
	}

	var acc C
	for i := range bases {
		var e big.Int
		PS(&scalars[i]).BigInt(&e)
		if e.Sign() == 0 {
			continue
		}
		var term C
		PC(&term).Set(&bases[i])
		PC(&term).ScalarMultiplication(&term, &e)
		PC(&acc).Add(&acc, &term)
	}
	return acc, nil
}
