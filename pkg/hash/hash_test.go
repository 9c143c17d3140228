package hash

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
)

func TestHash_WriteAny(t *testing.T) {
	var err error

	testFunc := func(vs ...interface{}) error {
		h := New()
		for _, v := range vs {
			err = h.WriteAny(v)
			if err != nil {
				return err
			}
		}
		return nil
	}

	for _, group := range []curve.Curve{curve.Ristretto255{}, curve.Secp256k1{}} {
		assert.NoError(t, testFunc(sample.Scalar(rand.Reader, group)))
		assert.NoError(t, testFunc(sample.Scalar(rand.Reader, group).ActOnBase()))
	}
	assert.NoError(t, testFunc([]byte{1, 4, 6}))
	assert.NoError(t, testFunc(BytesWithDomain{"test", []byte{}}))
	assert.Error(t, testFunc([]byte(nil)))
	assert.Error(t, testFunc(42))
}

func TestHash_WriteAny_Collision(t *testing.T) {
	var err error

	testFunc := func(vs ...interface{}) ([]byte, error) {
		h := New()
		for _, v := range vs {
			err = h.WriteAny(v)
			if err != nil {
				return nil, err
			}
		}
		return h.Sum(), nil
	}
	h1, err := testFunc([]byte("1)([]byte*data_added*"), []byte("3"))
	assert.NoError(t, err)
	h2, err := testFunc([]byte("1"), []byte("*data_added*)([]byte3"))
	assert.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	h3, err := testFunc(BytesWithDomain{"a", []byte("bc")})
	assert.NoError(t, err)
	h4, err := testFunc(BytesWithDomain{"ab", []byte("c")})
	assert.NoError(t, err)
	assert.NotEqual(t, h3, h4)

	h5, err := testFunc([]byte("ab"), []byte("c"))
	assert.NoError(t, err)
	h6, err := testFunc([]byte("a"), []byte("bc"))
	assert.NoError(t, err)
	assert.NotEqual(t, h5, h6)

	h7, err := testFunc([]byte("x"), []byte("y"))
	assert.NoError(t, err)
	h8, err := testFunc([]byte("x)([]bytey"))
	assert.NoError(t, err)
	assert.NotEqual(t, h7, h8)
}

func TestHash_Clone(t *testing.T) {
	h := New(BytesWithDomain{"Protocol", []byte("test")})
	clone := h.Clone()
	assert.Equal(t, h.Sum(), clone.Sum())

	require.NoError(t, clone.WriteAny([]byte("more")))
	assert.NotEqual(t, h.Sum(), clone.Sum(), "writing to a clone leaves the original untouched")

	digest := make([]byte, 2*DigestLengthBytes)
	_, err := io.ReadFull(h.Digest(), digest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(digest, h.Sum()))
}
