package sample

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
)

var groups = []curve.Curve{curve.Ristretto255{}, curve.Secp256k1{}}

func TestScalarDeterministic(t *testing.T) {
	for _, group := range groups {
		seed := bytes.Repeat([]byte{0xAB}, group.SafeScalarBytes())
		a := Scalar(bytes.NewReader(seed), group)
		b := Scalar(bytes.NewReader(seed), group)
		assert.True(t, a.Equal(b), group.Name())
	}
}

func TestScalarUnit(t *testing.T) {
	for _, group := range groups {
		// the first draw reduces to zero, the second does not
		seed := make([]byte, 2*group.SafeScalarBytes())
		seed[len(seed)-1] = 1
		s := ScalarUnit(bytes.NewReader(seed), group)
		assert.False(t, s.IsZero(), group.Name())
		assert.True(t, s.Equal(group.NewScalar().SetNat(new(saferith.Nat).SetUint64(1))), group.Name())
	}
}

func TestScalarPointPair(t *testing.T) {
	for _, group := range groups {
		x, X := ScalarPointPair(rand.Reader, group)
		assert.True(t, x.ActOnBase().Equal(X), group.Name())
	}
}

func TestPoint(t *testing.T) {
	for _, group := range groups {
		p := Point(rand.Reader, group)
		q := Point(rand.Reader, group)
		require.False(t, p.IsIdentity(), group.Name())
		assert.False(t, p.Equal(q), group.Name())
	}
}

func TestShortReaderPanics(t *testing.T) {
	assert.Panics(t, func() {
		Scalar(bytes.NewReader([]byte{1, 2, 3}), curve.Ristretto255{})
	})
}

func BenchmarkScalar(b *testing.B) {
	for _, group := range groups {
		b.Run(group.Name(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				Scalar(rand.Reader, group)
			}
		})
	}
}

func TestSeededReader(t *testing.T) {
	a, b := NewSeededReader([]byte("seed")), NewSeededReader([]byte("seed"))
	bufA, bufB := make([]byte, 100), make([]byte, 100)
	_, err := a.Read(bufA)
	require.NoError(t, err)
	_, err = b.Read(bufB)
	require.NoError(t, err)
	assert.Equal(t, bufA, bufB)

	_, err = NewSeededReader([]byte("other seed")).Read(bufB)
	require.NoError(t, err)
	assert.NotEqual(t, bufA, bufB)

	// later reads continue the keystream
	_, err = a.Read(bufB)
	require.NoError(t, err)
	assert.NotEqual(t, bufA, bufB)
}

func TestSeededReaderLongSeeds(t *testing.T) {
	read := func(seed []byte) []byte {
		buf := make([]byte, 64)
		_, err := NewSeededReader(seed).Read(buf)
		require.NoError(t, err)
		return buf
	}
	prefix := bytes.Repeat([]byte{7}, 32)
	assert.NotEqual(t, read(append(append([]byte{}, prefix...), 1)), read(append(append([]byte{}, prefix...), 2)))
	assert.NotEqual(t, read([]byte("a")), read([]byte("a\x00")))
	assert.NotEqual(t, read(nil), read(make([]byte, 32)))
}
