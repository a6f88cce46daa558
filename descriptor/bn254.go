package descriptor

import (
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
)

// bn254FrModulus, bn254FrTwoAdicity are the well-known BN254 scalar field
// parameters (q and the largest s with 2^s | q-1); they are not re-derived
// here because gnark-crypto does not export them as package-level values,
// only bakes them into fr.Element's Montgomery arithmetic.
var bn254FrModulus, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

const bn254FrTwoAdicity = 28

// BN254Fr is the scalar-field descriptor for BN254, backed by
// gnark-crypto's ecc/bn254/fr.Element.
var BN254Fr = &FieldCurveDescriptor{
	Identifier: "bn254_fr",
	NumBits:    254,
	Limbs:      4,
	Modulus:    bn254FrModulus,
	TwoAdicity: bn254FrTwoAdicity,
}

// BN254G1 is the curve descriptor for BN254's G1, backed by
// gnark-crypto's ecc/bn254.G1Jac/G1Affine. It shares the scalar-field
// parameters of BN254Fr (the field twiddles act on G1 points by scalar
// multiplication) and adds the curve coefficients.
var BN254G1 = &FieldCurveDescriptor{
	Identifier:    "bn254_g1",
	NumBits:       254,
	Limbs:         4,
	Modulus:       bn254FrModulus,
	TwoAdicity:    bn254FrTwoAdicity,
	CurveA:        big.NewInt(0), // matches GetBN254Params in the teacher's std/algebra/native/weierstrass/params.go
	CurveB:        big.NewInt(3),
	Cofactor:      big.NewInt(1),
	SubgroupOrder: bn254FrModulus,
}

// BN254RootOfUnity returns the primitive root of unity of order 2^logN in
// BN254's scalar field, by asking gnark-crypto for the FFT domain of that
// cardinality rather than squaring down from a hardcoded constant — the
// same indirection gnark-crypto's own FFT-based callers use.
func BN254RootOfUnity(logN uint64) (fr.Element, error) {
	if logN > bn254FrTwoAdicity {
		return fr.Element{}, errTooLarge(logN, bn254FrTwoAdicity)
	}
	domain := fft.NewDomain(uint64(1) << logN)
	return domain.Generator, nil
}

// zero-alloc adapter so BN254Fr/BN254G1 can be used through
// RootOfUnityProvider without exposing the fft package to callers that only
// import descriptor.
type bn254FrRootProvider struct{}

func (bn254FrRootProvider) RootOfUnity(logN uint64) (fr.Element, error) {
	return BN254RootOfUnity(logN)
}

// BN254FrRoots is the RootOfUnityProvider for BN254Fr/BN254G1.
var BN254FrRoots RootOfUnityProvider[fr.Element] = bn254FrRootProvider{}

func errTooLarge(logN, twoAdicity uint64) error {
	return &twoAdicityError{logN: logN, twoAdicity: twoAdicity}
}

type twoAdicityError struct {
	logN, twoAdicity uint64
}

func (e *twoAdicityError) Error() string {
	return "descriptor: requested log_n exceeds two-adicity of the scalar field"
}

// compile-time assertions that gnark-crypto's generated types satisfy the
// generic constraints this module relies on.
var (
	_ Field[fr.Element]  = (*fr.Element)(nil)
	_ Curve[bn254.G1Jac] = (*bn254.G1Jac)(nil)
)
