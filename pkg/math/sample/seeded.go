package sample

import (
	"io"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20"
)

const seedContext = "uprove-tokens 2023 sample.SeededReader"

// SeededReader is a deterministic io.Reader, producing the chacha20 keystream for a given seed.
//
// It reproduces a run exactly, and must never be used to produce real keys or tokens.
type SeededReader struct {
	cipher *chacha20.Cipher
}

// NewSeededReader derives a chacha20 key from seed with blake3, and returns a reader producing its keystream.
//
// Every seed, of any length, gives a different stream.
func NewSeededReader(seed []byte) *SeededReader {
	key := make([]byte, chacha20.KeySize)
	blake3.DeriveKey(seedContext, seed, key)
	nonce := make([]byte, chacha20.NonceSize)
	cipher, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		panic(err)
	}
	return &SeededReader{cipher: cipher}
}

// Read implements io.Reader.
func (r *SeededReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	r.cipher.XORKeyStream(p, p)
	return len(p), nil
}

var _ io.Reader = (*SeededReader)(nil)
