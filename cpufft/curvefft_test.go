package cpufft

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/consensys/gnark-gpu/descriptor"
	"github.com/consensys/gnark-gpu/threadpool"
)

func randomPoints(n int) []bn254.G1Jac {
	g, _, _, _ := bn254.Generators()
	out := make([]bn254.G1Jac, n)
	for i := range out {
		var p bn254.G1Jac
		p.ScalarMultiplication(&g, big.NewInt(int64(3*i+1)))
		out[i] = p
	}
	return out
}

func scalePoints(a []bn254.G1Jac, by int64) []bn254.G1Jac {
	out := make([]bn254.G1Jac, len(a))
	for i := range a {
		out[i].ScalarMultiplication(&a[i], big.NewInt(by))
	}
	return out
}

func TestCurveSerialFFTRoundTrip(t *testing.T) {
	for logN := uint32(0); logN <= 5; logN++ {
		n := 1 << logN
		original := randomPoints(n)
		a := append([]bn254.G1Jac(nil), original...)

		omega, err := descriptor.BN254RootOfUnity(uint64(logN))
		require.NoError(t, err)

		CurveSerialFFT[bn254.G1Jac, *bn254.G1Jac, fr.Element, *fr.Element](a, &omega, logN)

		var omegaInv fr.Element
		if n > 1 {
			omegaInv.Exp(omega, big.NewInt(int64(n-1)))
		} else {
			omegaInv.SetOne()
		}
		CurveSerialFFT[bn254.G1Jac, *bn254.G1Jac, fr.Element, *fr.Element](a, &omegaInv, logN)

		want := scalePoints(original, int64(n))
		for i := range a {
			require.True(t, a[i].Equal(&want[i]), "index %d: forward+inverse must recover n*original", i)
		}
	}
}

func TestCurveSerialAndParallelFFTAgree(t *testing.T) {
	const logN = uint32(8)
	n := 1 << logN
	points := randomPoints(n)

	serial := append([]bn254.G1Jac(nil), points...)
	parallel := append([]bn254.G1Jac(nil), points...)

	omega, err := descriptor.BN254RootOfUnity(uint64(logN))
	require.NoError(t, err)

	CurveSerialFFT[bn254.G1Jac, *bn254.G1Jac, fr.Element, *fr.Element](serial, &omega, logN)

	pool := threadpool.NewSized(4)
	CurveParallelFFT[bn254.G1Jac, *bn254.G1Jac, fr.Element, *fr.Element](parallel, pool, &omega, logN, pool.LogNumThreads())

	for i := range serial {
		require.True(t, serial[i].Equal(&parallel[i]), "index %d diverges between serial and parallel", i)
	}
}
