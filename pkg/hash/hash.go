package hash

import (
	"fmt"
	"io"

	"github.com/taurusgroup/uprove-tokens/internal/params"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/zeebo/blake3"
)

// DigestLengthBytes is the length of the output of Sum.
const DigestLengthBytes = params.SecBytes * 2 // 64

// Hash is the hash function we use for deriving challenges, session identifiers, etc.
//
// Internally, this is a wrapper around blake3, whose extendable output lets callers
// read as many bytes as they need from the final state.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash struct, and writes the initial data to its state.
func New(initialData ...WriterToWithDomain) *Hash {
	hash := &Hash{h: blake3.New()}
	for _, d := range initialData {
		_ = hash.WriteAny(d)
	}
	return hash
}

// Digest returns a reader for the current output of the function.
//
// This finalizes the current state of the hash, and returns what's
// essentially a stream of random bytes.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a slice of length DigestLengthBytes resulting from the current hash state.
// If a different length is required, use io.ReadFull(hash.Digest(), out) instead.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash.Sum: internal hash failure: %v", err))
	}
	return out
}

// WriteAny takes many different data types and writes them to the hash state.
//
// Currently supported types:
//
//   - []byte
//   - curve.Scalar
//   - curve.Point
//   - hash.WriterToWithDomain
//
// This function will apply its own domain separation for the first three types.
// The last type already suggests which domain to use, and this function respects it.
func (hash *Hash) WriteAny(data ...interface{}) error {
	var toBeWritten WriterToWithDomain
	for _, d := range data {
		switch t := d.(type) {
		case []byte:
			if t == nil {
				return fmt.Errorf("hash.WriteAny: nil []byte")
			}
			toBeWritten = &BytesWithDomain{"[]byte", t}
		case curve.Scalar:
			bytes, err := t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash.WriteAny: %w", err)
			}
			toBeWritten = &BytesWithDomain{"curve.Scalar", bytes}
		case curve.Point:
			bytes, err := t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash.WriteAny: %w", err)
			}
			toBeWritten = &BytesWithDomain{"curve.Point", bytes}
		case WriterToWithDomain:
			toBeWritten = t
		default:
			return fmt.Errorf("hash.WriteAny: invalid type provided as input: %T", d)
		}
		if err := writeWithDomain(hash.h, toBeWritten); err != nil {
			return fmt.Errorf("hash.WriteAny: %w", err)
		}
	}
	return nil
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}
