package msm

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

func TestNaiveMultiexpSingleBase(t *testing.T) {
	g, _, _, _ := bn254.Generators()

	var s fr.Element
	s.SetUint64(7)

	result, err := NaiveMultiexp[bn254.G1Jac, *bn254.G1Jac, fr.Element, *fr.Element]([]bn254.G1Jac{g}, []fr.Element{s})
	require.NoError(t, err)

	var want bn254.G1Jac
	want.ScalarMultiplication(&g, big.NewInt(7))
	require.True(t, result.Equal(&want))
}

func TestNaiveMultiexpZeroScalarContributesNothing(t *testing.T) {
	g, _, _, _ := bn254.Generators()

	var zero, one fr.Element
	zero.SetZero()
	one.SetOne()

	result, err := NaiveMultiexp[bn254.G1Jac, *bn254.G1Jac, fr.Element, *fr.Element]([]bn254.G1Jac{g, g}, []fr.Element{zero, one})
	require.NoError(t, err)
	require.True(t, result.Equal(&g))
}

func TestNaiveMultiexpIdentityBaseContributesNothing(t *testing.T) {
	g, _, _, _ := bn254.Generators()
	var infinity bn254.G1Jac // zero value is the point at infinity

	var one, three fr.Element
	one.SetOne()
	three.SetUint64(3)

	result, err := NaiveMultiexp[bn254.G1Jac, *bn254.G1Jac, fr.Element, *fr.Element]([]bn254.G1Jac{g, infinity}, []fr.Element{one, three})
	require.NoError(t, err)
	require.True(t, result.Equal(&g))
}

func TestNaiveMultiexpRejectsMismatchedLengths(t *testing.T) {
	_, err := NaiveMultiexp[bn254.G1Jac, *bn254.G1Jac, fr.Element, *fr.Element](make([]bn254.G1Jac, 2), make([]fr.Element, 3))
	require.Error(t, err)
}

func TestNaiveMultiexpMatchesSumOfScalarMultiplications(t *testing.T) {
	g, _, _, _ := bn254.Generators()
	const n = 16

	bases := make([]bn254.G1Jac, n)
	scalars := make([]fr.Element, n)
	var want bn254.G1Jac
	for i := range bases {
		bases[i].ScalarMultiplication(&g, big.NewInt(int64(i+1)))
		scalars[i].SetUint64(uint64(2*i + 1))

		var term bn254.G1Jac
		var e big.Int
		scalars[i].BigInt(&e)
		term.ScalarMultiplication(&bases[i], &e)
		want.Add(&want, &term)
	}

	result, err := NaiveMultiexp[bn254.G1Jac, *bn254.G1Jac, fr.Element, *fr.Element](bases, scalars)
	require.NoError(t, err)
	require.True(t, result.Equal(&want))
}
