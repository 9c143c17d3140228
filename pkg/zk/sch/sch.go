package zksch

import (
	"io"

	"github.com/taurusgroup/uprove-tokens/pkg/hash"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
)

// Randomness = a ← ℤₚ.
type Randomness struct {
	a          curve.Scalar
	commitment Commitment
}

// Commitment = randomness•B, where B is the generator of the statement.
type Commitment struct {
	C curve.Point
}

// Response = randomness + H(..., commitment, public)•secret (mod p).
type Response struct {
	group curve.Curve
	Z     curve.Scalar
}

// Proof of knowledge of x such that X = x•B.
type Proof struct {
	C Commitment
	Z Response
}

// NewProof generates a Schnorr proof of knowledge of exponent for public, using the Fiat-Shamir transform.
func NewProof(rand io.Reader, hash *hash.Hash, generator, public curve.Point, private curve.Scalar) *Proof {
	a := NewRandomness(rand, generator)
	z := a.Prove(hash, generator, public, private)
	return &Proof{
		C: *a.Commitment(),
		Z: *z,
	}
}

// NewRandomness creates a new a ∈ ℤₚ and the corresponding commitment C = a•B.
func NewRandomness(rand io.Reader, generator curve.Point) *Randomness {
	a := sample.ScalarUnit(rand, generator.Curve())
	return &Randomness{
		a:          a,
		commitment: Commitment{C: a.Act(generator)},
	}
}

func challenge(hash *hash.Hash, group curve.Curve, generator, commitment, public curve.Point) (e curve.Scalar, err error) {
	err = hash.WriteAny(generator, commitment, public)
	e = sample.Scalar(hash.Digest(), group)
	return
}

// Prove creates a Response = a + H(B,C,X)•x (mod p).
func (r *Randomness) Prove(hash *hash.Hash, generator, public curve.Point, secret curve.Scalar) *Response {
	if public.IsIdentity() || secret.IsZero() {
		return nil
	}
	group := secret.Curve()
	e, err := challenge(hash, group, generator, r.commitment.C, public)
	if err != nil {
		return nil
	}
	z := group.NewScalar().Set(e).Mul(secret).Add(r.a)
	return &Response{group: group, Z: z}
}

// Commitment returns the commitment C = a•B for the randomness a.
func (r *Randomness) Commitment() *Commitment {
	return &r.commitment
}

// Verify checks that Response•B = Commitment + H(B,C,X)•Public.
func (z *Response) Verify(hash *hash.Hash, generator, public curve.Point, commitment *Commitment) bool {
	if z == nil || !z.IsValid() || commitment == nil || public.IsIdentity() || commitment.C.IsIdentity() {
		return false
	}
	e, err := challenge(hash, z.group, generator, commitment.C, public)
	if err != nil {
		return false
	}
	lhs := z.Z.Act(generator)
	rhs := e.Act(public).Add(commitment.C)
	return lhs.Equal(rhs)
}

// Verify checks that Proof.Response•B = Proof.Commitment + H(B,C,X)•Public.
func (p *Proof) Verify(hash *hash.Hash, generator, public curve.Point) bool {
	if !p.IsValid() {
		return false
	}
	return p.Z.Verify(hash, generator, public, &p.C)
}

// WriteTo implements io.WriterTo.
func (c *Commitment) WriteTo(w io.Writer) (int64, error) {
	data, err := c.C.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain
func (Commitment) Domain() string {
	return "Schnorr Commitment"
}

func (z *Response) IsValid() bool {
	if z == nil || z.Z == nil || z.Z.IsZero() {
		return false
	}
	return true
}

func (p *Proof) IsValid() bool {
	if p == nil || !p.Z.IsValid() || p.C.C == nil || p.C.C.IsIdentity() {
		return false
	}
	return true
}

// EmptyProof returns a Proof whose fields can be decoded into, for the given group.
func EmptyProof(group curve.Curve) *Proof {
	return &Proof{
		C: Commitment{C: group.NewPoint()},
		Z: Response{group: group, Z: group.NewScalar()},
	}
}

// EmptyResponse returns a Response for the given group, ready for decoding.
func EmptyResponse(group curve.Curve) *Response {
	return &Response{group: group, Z: group.NewScalar()}
}

// EmptyCommitment returns a Commitment for the given group, ready for decoding.
func EmptyCommitment(group curve.Curve) *Commitment {
	return &Commitment{C: group.NewPoint()}
}
