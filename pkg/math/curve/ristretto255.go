package curve

import (
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/gtank/ristretto255"
	"github.com/taurusgroup/uprove-tokens/internal/params"
)

var ristretto255OrderNat, _ = new(saferith.Nat).SetHex("1000000000000000000000000000000014DEF9DEA2F79CD65812631A5CF5D3ED")
var ristretto255Order = saferith.ModulusFromNat(ristretto255OrderNat)

// Ristretto255 is the prime-order group built on top of Curve25519, see https://ristretto.group.
//
// Points are encoded on 32 bytes, and scalars with their 32 byte little-endian representation.
type Ristretto255 struct{}

func (Ristretto255) NewPoint() Point {
	return &Ristretto255Point{value: *ristretto255.NewElement()}
}

func (Ristretto255) NewBasePoint() Point {
	out := new(Ristretto255Point)
	out.value.Base()
	return out
}

func (Ristretto255) NewScalar() Scalar {
	return &Ristretto255Scalar{value: *ristretto255.NewScalar()}
}

func (Ristretto255) Name() string {
	return "ristretto255"
}

func (Ristretto255) ScalarBits() int {
	return 253
}

func (Ristretto255) SafeScalarBytes() int {
	return 32 + params.StatBytes
}

func (Ristretto255) Order() *saferith.Modulus {
	return ristretto255Order
}

func (Ristretto255) PointBytes() int {
	return 32
}

func (Ristretto255) ScalarBytes() int {
	return 32
}

func (Ristretto255) multiScalarMult(scalars []Scalar, points []Point) Point {
	s := make([]*ristretto255.Scalar, len(scalars))
	p := make([]*ristretto255.Element, len(points))
	for i := range scalars {
		s[i] = &ristretto255CastScalar(scalars[i]).value
		p[i] = &ristretto255CastPoint(points[i]).value
	}
	// the zero value of ristretto255.Element is not a valid element, and MultiScalarMult accumulates into it
	out := &Ristretto255Point{value: *ristretto255.NewElement()}
	out.value.MultiScalarMult(s, p)
	return out
}

// Ristretto255Scalar is an integer modulo the order of Ristretto255.
type Ristretto255Scalar struct {
	value ristretto255.Scalar
}

func ristretto255CastScalar(generic Scalar) *Ristretto255Scalar {
	out, ok := generic.(*Ristretto255Scalar)
	if !ok {
		panic(fmt.Sprintf("failed to convert to ristretto255Scalar: %v", generic))
	}
	return out
}

func (*Ristretto255Scalar) Curve() Curve {
	return Ristretto255{}
}

func (s *Ristretto255Scalar) MarshalBinary() ([]byte, error) {
	return s.value.Encode(make([]byte, 0, 32)), nil
}

func (s *Ristretto255Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("invalid length for ristretto255 scalar: %d", len(data))
	}
	if err := s.value.Decode(data); err != nil {
		return fmt.Errorf("invalid bytes for ristretto255 scalar: %w", err)
	}
	return nil
}

func (s *Ristretto255Scalar) Add(that Scalar) Scalar {
	other := ristretto255CastScalar(that)

	s.value.Add(&s.value, &other.value)
	return s
}

func (s *Ristretto255Scalar) Sub(that Scalar) Scalar {
	other := ristretto255CastScalar(that)

	s.value.Subtract(&s.value, &other.value)
	return s
}

func (s *Ristretto255Scalar) Mul(that Scalar) Scalar {
	other := ristretto255CastScalar(that)

	s.value.Multiply(&s.value, &other.value)
	return s
}

func (s *Ristretto255Scalar) Invert() Scalar {
	s.value.Invert(&s.value)
	return s
}

func (s *Ristretto255Scalar) Negate() Scalar {
	s.value.Negate(&s.value)
	return s
}

func (s *Ristretto255Scalar) Equal(that Scalar) bool {
	other := ristretto255CastScalar(that)

	return s.value.Equal(&other.value) == 1
}

func (s *Ristretto255Scalar) IsZero() bool {
	return s.value.Equal(ristretto255.NewScalar()) == 1
}

func (s *Ristretto255Scalar) Set(that Scalar) Scalar {
	other := ristretto255CastScalar(that)

	s.value = other.value
	return s
}

func (s *Ristretto255Scalar) SetNat(x *saferith.Nat) Scalar {
	reduced := new(saferith.Nat).Mod(x, ristretto255Order)
	buf := reduced.FillBytes(make([]byte, 32))
	// saferith is big-endian, ristretto255 little-endian
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	if err := s.value.Decode(buf); err != nil {
		panic(fmt.Sprintf("ristretto255Scalar.SetNat: reduced value is not canonical: %v", err))
	}
	return s
}

func (s *Ristretto255Scalar) Act(that Point) Point {
	other := ristretto255CastPoint(that)
	out := new(Ristretto255Point)
	out.value.ScalarMult(&s.value, &other.value)
	return out
}

func (s *Ristretto255Scalar) ActOnBase() Point {
	out := new(Ristretto255Point)
	out.value.ScalarBaseMult(&s.value)
	return out
}

// Ristretto255Point is an element of the Ristretto255 group.
type Ristretto255Point struct {
	value ristretto255.Element
}

func ristretto255CastPoint(generic Point) *Ristretto255Point {
	out, ok := generic.(*Ristretto255Point)
	if !ok {
		panic(fmt.Sprintf("failed to convert to ristretto255Point: %v", generic))
	}
	return out
}

func (*Ristretto255Point) Curve() Curve {
	return Ristretto255{}
}

func (p *Ristretto255Point) MarshalBinary() ([]byte, error) {
	return p.value.Encode(make([]byte, 0, 32)), nil
}

func (p *Ristretto255Point) UnmarshalBinary(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("invalid length for ristretto255Point: %d", len(data))
	}
	if err := p.value.Decode(data); err != nil {
		return fmt.Errorf("ristretto255Point.UnmarshalBinary: %w", err)
	}
	return nil
}

func (p *Ristretto255Point) Add(that Point) Point {
	other := ristretto255CastPoint(that)

	out := new(Ristretto255Point)
	out.value.Add(&p.value, &other.value)
	return out
}

func (p *Ristretto255Point) Sub(that Point) Point {
	other := ristretto255CastPoint(that)

	out := new(Ristretto255Point)
	out.value.Subtract(&p.value, &other.value)
	return out
}

func (p *Ristretto255Point) Set(that Point) Point {
	other := ristretto255CastPoint(that)

	p.value = other.value
	return p
}

func (p *Ristretto255Point) Negate() Point {
	out := new(Ristretto255Point)
	out.value.Negate(&p.value)
	return out
}

func (p *Ristretto255Point) Equal(that Point) bool {
	other := ristretto255CastPoint(that)

	return p.value.Equal(&other.value) == 1
}

func (p *Ristretto255Point) IsIdentity() bool {
	return p.value.Equal(ristretto255.NewElement()) == 1
}
