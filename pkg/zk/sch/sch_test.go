package zksch

import (
	"crypto/rand"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/uprove-tokens/pkg/hash"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
)

var groups = []curve.Curve{curve.Ristretto255{}, curve.Secp256k1{}}

func TestSchPass(t *testing.T) {
	for _, group := range groups {
		B := sample.Point(rand.Reader, group)
		x := sample.ScalarUnit(rand.Reader, group)
		X := x.Act(B)

		a := NewRandomness(rand.Reader, B)
		z := a.Prove(hash.New(), B, X, x)
		assert.True(t, z.Verify(hash.New(), B, X, a.Commitment()), "failed passing test")

		proof := NewProof(rand.Reader, hash.New(), B, X, x)
		assert.True(t, proof.Verify(hash.New(), B, X), "failed passing test")
	}
}

func TestSchFail(t *testing.T) {
	for _, group := range groups {
		B := group.NewBasePoint()
		a := NewRandomness(rand.Reader, B)
		x, X := group.NewScalar(), group.NewPoint()

		proof := a.Prove(hash.New(), B, X, x)
		assert.Nil(t, proof)
		assert.False(t, proof.Verify(hash.New(), B, X, a.Commitment()), "proof should not accept identity point")

		x, X = sample.ScalarPointPair(rand.Reader, group)
		valid := NewProof(rand.Reader, hash.New(), B, X, x)
		assert.False(t, valid.Verify(hash.New(), B.Negate(), X), "wrong generator")
		assert.False(t, valid.Verify(hash.New(), B, X.Negate()), "wrong public point")

		h := hash.New()
		require.NoError(t, h.WriteAny([]byte("session")))
		assert.False(t, valid.Verify(h, B, X), "different hash state")
	}
}

func TestSchMarshal(t *testing.T) {
	for _, group := range groups {
		x, X := sample.ScalarPointPair(rand.Reader, group)
		B := group.NewBasePoint()
		proof := NewProof(rand.Reader, hash.New(), B, X, x)

		data, err := cbor.Marshal(proof)
		require.NoError(t, err)
		decoded := EmptyProof(group)
		require.NoError(t, cbor.Unmarshal(data, decoded))
		assert.True(t, decoded.Verify(hash.New(), B, X))
	}
}
