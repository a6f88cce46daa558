// Package descriptor defines the field/curve descriptor contract that both
// the CPU reference implementations and the device code generator are
// written against. A descriptor is an opaque, read-only handle built once at
// engine construction and shared by every subsequent call (spec §3/§4.1).
//
// Field and curve arithmetic itself is out of scope for this module; it is
// obtained from github.com/consensys/gnark-crypto. The generic constraints
// below describe only the shape of arithmetic the rest of the engine needs,
// so that cpufft, ntt and msm are polymorphic over any curve that satisfies
// them, the same way gnark-crypto's own generated per-curve packages all
// expose the same method set.
package descriptor

import "math/big"

// Field is the arithmetic contract a scalar field element type must satisfy.
// gnark-crypto's ecc/*/fr.Element (and ecc/*/fp.Element) already implement
// this method set; no adapter is needed to use them as a type parameter.
type Field[T any] interface {
	*T

	SetOne() *T
	SetZero() *T
	SetUint64(uint64) *T
	IsZero() bool
	Equal(*T) bool
	Set(*T) *T

	Add(a, b *T) *T
	Sub(a, b *T) *T
	Mul(a, b *T) *T
	Square(a *T) *T
	Exp(a T, e *big.Int) *T

	BigInt(res *big.Int) *big.Int
	SetBigInt(v *big.Int) *T
}

// Curve is the arithmetic contract a projective/Jacobian curve point type
// must satisfy. gnark-crypto's ecc/*.G1Jac/G2Jac already implement this
// method set.
type Curve[T any] interface {
	*T

	Set(a *T) *T
	Neg(a *T) *T
	Add(a, b *T) *T
	Double(a *T) *T
	IsInfinity() bool
	Equal(*T) bool
	ScalarMultiplication(a *T, s *big.Int) *T
}

// FieldCurveDescriptor is the opaque handle spec §4.1 describes: modulus,
// Montgomery constants, two-adicity, curve coefficients and a stable
// identifier used to namespace generated symbols and cache keys. The root
// of unity is not stored here; it comes from a RootOfUnityProvider (below).
// It is built once per (scalar field, curve) pair and never mutated.
type FieldCurveDescriptor struct {
	// Identifier is a short stable ASCII tag, used as a generated-symbol
	// prefix and as part of the source-bundle cache key. It must be a
	// valid (leading-letter) identifier fragment in both C-family
	// languages (OpenCL/CUDA) and Go.
	Identifier string

	// NumBits is the bit length of the modulus.
	NumBits int
	// Limbs is the number of 64-bit Montgomery limbs backing the field
	// element representation.
	Limbs int
	// Modulus is the field modulus q.
	Modulus *big.Int
	// MontgomeryR is R = 2^(64*Limbs) mod q.
	MontgomeryR *big.Int
	// MontgomeryR2 is R^2 mod q.
	MontgomeryR2 *big.Int
	// MontgomeryInv is -q^-1 mod 2^64.
	MontgomeryInv uint64

	// TwoAdicity is the largest s such that 2^s | (q - 1).
	TwoAdicity uint64

	// CurveA, CurveB are the short-Weierstrass coefficients; nil for a
	// pure scalar-field descriptor (spec §4.1 "for curves: a, b, ...").
	CurveA, CurveB *big.Int
	// Cofactor and SubgroupOrder describe the curve's prime-order
	// subgroup; nil for a pure scalar-field descriptor.
	Cofactor, SubgroupOrder *big.Int
}

// RootOfUnityProvider is implemented by a descriptor capable of producing
// the root of unity of a requested power-of-two order. Kept separate from
// FieldCurveDescriptor because the lookup generally delegates to
// gnark-crypto's own domain construction rather than a stored table (see
// descriptor/bn254.go).
type RootOfUnityProvider[T any] interface {
	// RootOfUnity returns a root of unity of order 2^logN. logN must not
	// exceed the descriptor's TwoAdicity.
	RootOfUnity(logN uint64) (T, error)
}
