package token

import (
	"encoding"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/uprove-tokens/pkg/hash"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
)

const protocolDomain = "uprove-tokens"

// FiatShamir maps an ordered list of byte strings to a scalar of group.
//
// Each input is written to the hash state with its own framing, so that the output
// depends on the boundaries between inputs and not only on their concatenation.
// The digest is then reduced modulo the order of the group.
//
// This is not a hash of the plain concatenation of the inputs: implementations
// interoperating with this package must reproduce the framing of pkg/hash.
func FiatShamir(group curve.Curve, data ...[]byte) curve.Scalar {
	h := hash.New(
		hash.BytesWithDomain{TheDomain: "Protocol", Bytes: []byte(protocolDomain)},
		hash.BytesWithDomain{TheDomain: "Group Name", Bytes: []byte(group.Name())},
	)
	for _, d := range data {
		if d == nil {
			d = []byte{}
		}
		_ = h.WriteAny(d)
	}
	return sample.Scalar(h.Digest(), group)
}

// challenge encodes each item, and returns FiatShamir of the encodings.
func challenge(group curve.Curve, items ...encoding.BinaryMarshaler) (curve.Scalar, error) {
	data := make([][]byte, 0, len(items))
	for _, item := range items {
		b, err := item.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("challenge: %w", err)
		}
		data = append(data, b)
	}
	return FiatShamir(group, data...), nil
}

func one(group curve.Curve) curve.Scalar {
	return group.NewScalar().SetNat(new(saferith.Nat).SetUint64(1))
}

func neg(s curve.Scalar) curve.Scalar {
	return s.Curve().NewScalar().Set(s).Negate()
}

func zero(scalars ...curve.Scalar) {
	for _, s := range scalars {
		if s != nil {
			s.Set(s.Curve().NewScalar())
		}
	}
}
