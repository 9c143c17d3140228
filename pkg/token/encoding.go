package token

import (
	"encoding"
	"fmt"
	"io"

	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
)

// field is a fixed width value of a message encoding.
type field struct {
	value encoding.BinaryUnmarshaler
	size  int
}

func pointField(p curve.Point) field {
	return field{value: p, size: p.Curve().PointBytes()}
}

func scalarField(s curve.Scalar) field {
	return field{value: s, size: s.Curve().ScalarBytes()}
}

func marshalFields(name string, values ...encoding.BinaryMarshaler) ([]byte, error) {
	var out []byte
	for _, v := range values {
		if v == nil {
			return nil, fmt.Errorf("token.%s.MarshalBinary: %w: missing field", name, ErrInvalidInput)
		}
		data, err := v.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("token.%s.MarshalBinary: %w", name, err)
		}
		out = append(out, data...)
	}
	return out, nil
}

func unmarshalFields(name string, data []byte, fields ...field) error {
	expected := 0
	for _, f := range fields {
		expected += f.size
	}
	if len(data) != expected {
		return fmt.Errorf("token.%s.UnmarshalBinary: %w: expected %d bytes, got %d", name, ErrMalformedEncoding, expected, len(data))
	}
	offset := 0
	for _, f := range fields {
		if err := f.value.UnmarshalBinary(data[offset : offset+f.size]); err != nil {
			return fmt.Errorf("token.%s.UnmarshalBinary: %w: %v", name, ErrMalformedEncoding, err)
		}
		offset += f.size
	}
	return nil
}

func groupOf(name string, p curve.Point) (curve.Curve, error) {
	if p == nil {
		return nil, fmt.Errorf("token.%s.UnmarshalBinary: %w: no group, use Empty%s", name, ErrInvalidInput, name)
	}
	return p.Curve(), nil
}

// EncodeScalar returns the canonical encoding of s.
func EncodeScalar(s curve.Scalar) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("token.EncodeScalar: %w: missing scalar", ErrInvalidInput)
	}
	return s.MarshalBinary()
}

// DecodeScalar decodes a scalar of group, such as the redemption challenge.
func DecodeScalar(group curve.Curve, data []byte) (curve.Scalar, error) {
	s := group.NewScalar()
	if err := unmarshalFields("Scalar", data, scalarField(s)); err != nil {
		return nil, err
	}
	return s, nil
}

// EncodePoint returns the canonical encoding of p.
func EncodePoint(p curve.Point) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("token.EncodePoint: %w: missing point", ErrInvalidInput)
	}
	return p.MarshalBinary()
}

// DecodePoint decodes a point of group, such as a public key.
func DecodePoint(group curve.Curve, data []byte) (curve.Point, error) {
	p := group.NewPoint()
	if err := unmarshalFields("Point", data, pointField(p)); err != nil {
		return nil, err
	}
	return p, nil
}

// EmptyPublicParams returns PublicParams for group, ready to be decoded into.
func EmptyPublicParams(group curve.Curve) *PublicParams {
	return &PublicParams{G0: group.NewPoint(), Gxt: group.NewPoint(), Gd: group.NewPoint()}
}

// MarshalBinary implements encoding.BinaryMarshaler, as G0 ‖ Gxt ‖ Gd.
func (pp *PublicParams) MarshalBinary() ([]byte, error) {
	return marshalFields("PublicParams", pp.G0, pp.Gxt, pp.Gd)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (pp *PublicParams) UnmarshalBinary(data []byte) error {
	group, err := groupOf("PublicParams", pp.G0)
	if err != nil {
		return err
	}
	g0, gxt, gd := group.NewPoint(), group.NewPoint(), group.NewPoint()
	if err = unmarshalFields("PublicParams", data, pointField(g0), pointField(gxt), pointField(gd)); err != nil {
		return err
	}
	pp.G0, pp.Gxt, pp.Gd = g0, gxt, gd
	return nil
}

// WriteTo implements io.WriterTo, writing the binary encoding of pp.
func (pp *PublicParams) WriteTo(w io.Writer) (int64, error) {
	data, err := pp.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*PublicParams) Domain() string {
	return "Public Parameters"
}

// EmptyInitMessage returns an InitMessage for group, ready to be decoded into.
func EmptyInitMessage(group curve.Curve) *InitMessage {
	return &InitMessage{SigmaZ: group.NewPoint(), SigmaA: group.NewPoint(), SigmaB: group.NewPoint()}
}

// MarshalBinary implements encoding.BinaryMarshaler, as Σz ‖ Σa ‖ Σb.
func (m *InitMessage) MarshalBinary() ([]byte, error) {
	return marshalFields("InitMessage", m.SigmaZ, m.SigmaA, m.SigmaB)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *InitMessage) UnmarshalBinary(data []byte) error {
	group, err := groupOf("InitMessage", m.SigmaZ)
	if err != nil {
		return err
	}
	z, a, b := group.NewPoint(), group.NewPoint(), group.NewPoint()
	if err = unmarshalFields("InitMessage", data, pointField(z), pointField(a), pointField(b)); err != nil {
		return err
	}
	m.SigmaZ, m.SigmaA, m.SigmaB = z, a, b
	return nil
}

// EmptyToken returns a Token for group, ready to be decoded into.
func EmptyToken(group curve.Curve) *Token {
	return &Token{
		H:      group.NewPoint(),
		SigmaZ: group.NewPoint(),
		Pi:     group.NewScalar(),
		SigmaC: group.NewScalar(),
		SigmaR: group.NewScalar(),
	}
}

// MarshalBinary implements encoding.BinaryMarshaler, as H ‖ Σz' ‖ π ‖ σc' ‖ σr'.
func (t *Token) MarshalBinary() ([]byte, error) {
	return marshalFields("Token", t.H, t.SigmaZ, t.Pi, t.SigmaC, t.SigmaR)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (t *Token) UnmarshalBinary(data []byte) error {
	group, err := groupOf("Token", t.H)
	if err != nil {
		return err
	}
	decoded := EmptyToken(group)
	if err = unmarshalFields("Token", data, decoded.fields()...); err != nil {
		return err
	}
	*t = *decoded
	return nil
}

func (t *Token) fields() []field {
	return []field{pointField(t.H), pointField(t.SigmaZ), scalarField(t.Pi), scalarField(t.SigmaC), scalarField(t.SigmaR)}
}

// EmptyRedemptionProof1 returns a RedemptionProof1 for group, ready to be decoded into.
func EmptyRedemptionProof1(group curve.Curve) *RedemptionProof1 {
	return &RedemptionProof1{Token: EmptyToken(group), Commitment: group.NewPoint()}
}

// MarshalBinary implements encoding.BinaryMarshaler, as Token ‖ Commitment.
func (p *RedemptionProof1) MarshalBinary() ([]byte, error) {
	if p.Token == nil {
		return nil, fmt.Errorf("token.RedemptionProof1.MarshalBinary: %w: missing token", ErrInvalidInput)
	}
	return marshalFields("RedemptionProof1", p.Token, p.Commitment)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *RedemptionProof1) UnmarshalBinary(data []byte) error {
	group, err := groupOf("RedemptionProof1", p.Commitment)
	if err != nil {
		return err
	}
	decoded := EmptyRedemptionProof1(group)
	fields := append(decoded.Token.fields(), pointField(decoded.Commitment))
	if err = unmarshalFields("RedemptionProof1", data, fields...); err != nil {
		return err
	}
	*p = *decoded
	return nil
}

// EmptyRedemptionProof2 returns a RedemptionProof2 for group, ready to be decoded into.
func EmptyRedemptionProof2(group curve.Curve) *RedemptionProof2 {
	return &RedemptionProof2{R0: group.NewScalar(), Rd: group.NewScalar()}
}

// MarshalBinary implements encoding.BinaryMarshaler, as r0 ‖ rd.
func (p *RedemptionProof2) MarshalBinary() ([]byte, error) {
	return marshalFields("RedemptionProof2", p.R0, p.Rd)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *RedemptionProof2) UnmarshalBinary(data []byte) error {
	if p.R0 == nil {
		return fmt.Errorf("token.RedemptionProof2.UnmarshalBinary: %w: no group, use EmptyRedemptionProof2", ErrInvalidInput)
	}
	decoded := EmptyRedemptionProof2(p.R0.Curve())
	if err := unmarshalFields("RedemptionProof2", data, scalarField(decoded.R0), scalarField(decoded.Rd)); err != nil {
		return err
	}
	*p = *decoded
	return nil
}
