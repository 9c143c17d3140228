package curve

import (
	"encoding"
	"fmt"

	"github.com/cronokirby/saferith"
)

// Curve represents a prime-order group, used for the algebra of the token protocols.
//
// Implementations are stateless value types, so a Curve can be compared with ==
// and shared freely between goroutines.
type Curve interface {
	// NewPoint returns the identity element of the group.
	NewPoint() Point
	// NewBasePoint returns the canonical generator of the group.
	NewBasePoint() Point
	// NewScalar returns the zero scalar.
	NewScalar() Scalar
	// Name returns a unique identifier for this group.
	Name() string
	// ScalarBits returns the bit length of the group order.
	ScalarBits() int
	// SafeScalarBytes returns the number of random bytes needed to sample a scalar
	// with negligible bias after reduction modulo the order.
	SafeScalarBytes() int
	// Order returns the order of the group.
	Order() *saferith.Modulus
	// PointBytes is the length of the canonical encoding of a Point.
	PointBytes() int
	// ScalarBytes is the length of the canonical encoding of a Scalar.
	ScalarBytes() int
}

// Scalar represents an element of the field of integers modulo the group order.
//
// Arithmetic methods modify the receiver in place, and return it, so that they can be chained:
//
//	x := group.NewScalar().Set(a).Mul(b).Add(c)
//
// Marshalling produces the canonical fixed-width encoding, and unmarshalling rejects
// encodings of the wrong length or of integers not reduced modulo the order.
type Scalar interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	// Curve returns the group this scalar belongs to.
	Curve() Curve
	// Add sets s = s + x, and returns s.
	Add(x Scalar) Scalar
	// Sub sets s = s - x, and returns s.
	Sub(x Scalar) Scalar
	// Negate sets s = -s, and returns s.
	Negate() Scalar
	// Mul sets s = s * x, and returns s.
	Mul(x Scalar) Scalar
	// Invert sets s = s⁻¹, and returns s. The inverse of 0 is 0.
	Invert() Scalar
	// Equal returns true if s = x.
	Equal(x Scalar) bool
	// IsZero returns true if s = 0.
	IsZero() bool
	// Set sets s = x, and returns s.
	Set(x Scalar) Scalar
	// SetNat sets s = x mod q, and returns s.
	SetNat(x *saferith.Nat) Scalar
	// Act returns s•P, as a new Point.
	Act(P Point) Point
	// ActOnBase returns s•G, as a new Point.
	ActOnBase() Point
}

// Point represents an element of the group.
//
// Unlike Scalar, operations on points always return a new Point, leaving the receiver untouched.
// The canonical encoding has a fixed width for a given group, and is only meant for hashing
// and transport; equality must be checked with Equal.
type Point interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	// Curve returns the group this point belongs to.
	Curve() Curve
	// Add returns P + Q.
	Add(Q Point) Point
	// Sub returns P - Q.
	Sub(Q Point) Point
	// Negate returns -P.
	Negate() Point
	// Set sets P = Q, and returns P.
	Set(Q Point) Point
	// Equal returns true if P = Q.
	Equal(Q Point) bool
	// IsIdentity returns true if P is the neutral element of the group.
	IsIdentity() bool
}

// MultiScalarMult returns ∑ᵢ sᵢ•Pᵢ.
//
// The result is the same as the pointwise sum. Groups implementing a native
// multi-scalar multiplication are dispatched to it; the others are summed term by term.
//
// It panics if the slices have different lengths.
func MultiScalarMult(group Curve, scalars []Scalar, points []Point) Point {
	if len(scalars) != len(points) {
		panic("curve.MultiScalarMult: scalars and points have different lengths")
	}
	if msm, ok := group.(multiScalarMultiplier); ok {
		return msm.multiScalarMult(scalars, points)
	}
	result := group.NewPoint()
	for i := range scalars {
		result = result.Add(scalars[i].Act(points[i]))
	}
	return result
}

// multiScalarMultiplier is implemented by groups with a dedicated algorithm for ∑ᵢ sᵢ•Pᵢ.
type multiScalarMultiplier interface {
	multiScalarMult(scalars []Scalar, points []Point) Point
}

// FromHash converts a digest to a Scalar, by reducing the big-endian integer it
// represents modulo the order of the group.
//
// The digest should be at least group.SafeScalarBytes() long for the result to be
// close to uniform.
func FromHash(group Curve, h []byte) Scalar {
	return group.NewScalar().SetNat(new(saferith.Nat).SetBytes(h))
}

// FromName returns the group registered under name, as returned by Curve.Name.
func FromName(name string) (Curve, error) {
	switch name {
	case Ristretto255{}.Name():
		return Ristretto255{}, nil
	case Secp256k1{}.Name():
		return Secp256k1{}, nil
	default:
		return nil, fmt.Errorf("curve: unknown group %q", name)
	}
}
