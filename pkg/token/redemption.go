package token

import (
	"fmt"
	"io"

	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
)

// RedemptionProof1 is the first message of a redemption, sent by the client.
type RedemptionProof1 struct {
	Token *Token
	// Commitment = w0•H + (wd + wd')•Gd
	Commitment curve.Point
}

// RedemptionProof2 is the client's response to the server's freshness challenge.
type RedemptionProof2 struct {
	// R0 = c⋅α⁻¹ + w0
	R0 curve.Scalar
	// Rd = -c⋅sk_c + wd' + wd
	Rd curve.Scalar
}

// Presentation is the transcript of a redemption, as seen by the client.
type Presentation struct {
	Proof1    *RedemptionProof1
	Challenge curve.Scalar
	Proof2    *RedemptionProof2
}

// CheckToken verifies that t was issued with the key of serverPublic.
//
// It recomputes the issuance challenge from the public values in t, and returns ErrTokenInvalid
// if it differs from t.SigmaC.
func CheckToken(pp *PublicParams, serverPublic curve.Point, t *Token) error {
	if err := pp.Validate(); err != nil {
		return fmt.Errorf("token.CheckToken: %w", err)
	}
	group := pp.Group()
	if !validPoint(group, serverPublic) {
		return fmt.Errorf("token.CheckToken: %w: server public key", ErrInvalidInput)
	}
	if !t.validate(group) {
		return fmt.Errorf("token.CheckToken: %w: malformed token", ErrTokenInvalid)
	}

	negC := neg(t.SigmaC)
	// Σa' = σr'•pk_s - σc'•G0
	sigmaA := curve.MultiScalarMult(group,
		[]curve.Scalar{t.SigmaR, negC},
		[]curve.Point{serverPublic, pp.G0})
	// Σb' = σr'•H - σc'•Σz'
	sigmaB := curve.MultiScalarMult(group,
		[]curve.Scalar{t.SigmaR, negC},
		[]curve.Point{t.H, t.SigmaZ})

	expected, err := challenge(group, t.H, t.Pi, t.SigmaZ, sigmaA, sigmaB)
	if err != nil {
		return fmt.Errorf("token.CheckToken: %w", err)
	}
	if !expected.Equal(t.SigmaC) {
		return fmt.Errorf("token.CheckToken: %w", ErrTokenInvalid)
	}
	return nil
}

// redemptionChallenge returns c = FS(FS(H, a)).
func redemptionChallenge(group curve.Curve, t *Token, a curve.Scalar) (curve.Scalar, error) {
	cP, err := challenge(group, t.H, a)
	if err != nil {
		return nil, err
	}
	return challenge(group, cP)
}

// ClientRedemption is the client state between its commitment and its response.
//
// It can only be used once.
type ClientRedemption struct {
	token    *Token
	key      *ClientKey
	alpha    curve.Scalar
	wdBlind  curve.Scalar
	w0, wd   curve.Scalar
	consumed bool
}

// NewClientRedemption starts the presentation of t.
//
// The Witness obtained with t is required to answer the server's challenge.
func NewClientRedemption(rand io.Reader, pp *PublicParams, t *Token, key *ClientKey, witness *Witness) (*RedemptionProof1, *ClientRedemption, error) {
	if err := pp.Validate(); err != nil {
		return nil, nil, fmt.Errorf("token.NewClientRedemption: %w", err)
	}
	group := pp.Group()
	if !t.validate(group) {
		return nil, nil, fmt.Errorf("token.NewClientRedemption: %w: token", ErrInvalidInput)
	}
	if key == nil || !validScalar(group, key.Secret) {
		return nil, nil, fmt.Errorf("token.NewClientRedemption: %w: client key", ErrInvalidInput)
	}
	if witness == nil || !validScalar(group, witness.Alpha) || witness.Alpha.IsZero() {
		return nil, nil, fmt.Errorf("token.NewClientRedemption: %w: witness", ErrInvalidInput)
	}

	wdBlind := sample.Scalar(rand, group)
	w0 := sample.Scalar(rand, group)
	wd := sample.Scalar(rand, group)

	commitment := curve.MultiScalarMult(group,
		[]curve.Scalar{w0, wd, wdBlind},
		[]curve.Point{t.H, pp.Gd, pp.Gd})

	proof := &RedemptionProof1{Token: t, Commitment: commitment}
	return proof, &ClientRedemption{
		token:   t,
		key:     key,
		alpha:   group.NewScalar().Set(witness.Alpha),
		wdBlind: wdBlind,
		w0:      w0,
		wd:      wd,
	}, nil
}

// Respond answers the server's freshness challenge a.
//
// The ephemeral scalars are erased afterwards, and further calls return ErrSessionConsumed.
func (c *ClientRedemption) Respond(a curve.Scalar) (*RedemptionProof2, error) {
	if c == nil || c.consumed {
		return nil, fmt.Errorf("token.ClientRedemption.Respond: %w", ErrSessionConsumed)
	}
	group := c.token.Group()
	if !validScalar(group, a) {
		return nil, fmt.Errorf("token.ClientRedemption.Respond: %w: challenge", ErrInvalidInput)
	}
	c.consumed = true
	defer zero(c.alpha, c.wdBlind, c.w0, c.wd)

	ch, err := redemptionChallenge(group, c.token, a)
	if err != nil {
		return nil, fmt.Errorf("token.ClientRedemption.Respond: %w", err)
	}

	// rd' = -c⋅sk_c + wd'
	rdBlind := group.NewScalar().Set(ch).Mul(c.key.Secret).Negate().Add(c.wdBlind)
	// r0 = c⋅α⁻¹ + w0
	alphaInv := group.NewScalar().Set(c.alpha).Invert()
	r0 := group.NewScalar().Set(ch).Mul(alphaInv).Add(c.w0)
	// rd = rd' + wd
	rd := rdBlind.Add(c.wd)

	return &RedemptionProof2{R0: r0, Rd: rd}, nil
}

// ServerRedemption is the server state between its challenge and the client's response.
//
// It can only be used once.
type ServerRedemption struct {
	pp         *PublicParams
	token      *Token
	a          curve.Scalar
	commitment curve.Point
	consumed   bool
}

// NewServerRedemption checks the token presented in proof, and returns a fresh challenge a for the client.
//
// It returns an error wrapping ErrTokenInvalid if the token was not issued under serverPublic.
func NewServerRedemption(rand io.Reader, pp *PublicParams, serverPublic curve.Point, proof *RedemptionProof1) (curve.Scalar, *ServerRedemption, error) {
	if proof == nil {
		return nil, nil, fmt.Errorf("token.NewServerRedemption: %w: missing proof", ErrInvalidInput)
	}
	if err := CheckToken(pp, serverPublic, proof.Token); err != nil {
		return nil, nil, fmt.Errorf("token.NewServerRedemption: %w", err)
	}
	group := pp.Group()
	if !validPoint(group, proof.Commitment) {
		return nil, nil, fmt.Errorf("token.NewServerRedemption: %w: commitment", ErrInvalidInput)
	}

	a := sample.Scalar(rand, group)
	return group.NewScalar().Set(a), &ServerRedemption{
		pp:         pp,
		token:      proof.Token,
		a:          a,
		commitment: proof.Commitment,
	}, nil
}

// Token returns the token being presented.
func (s *ServerRedemption) Token() *Token {
	return s.token
}

// Verify checks the client's response, and returns true if the presentation is accepted.
//
// The check is Commitment = -c•Gxt + r0•H + rd•Gd. The state is consumed, and further calls return false.
func (s *ServerRedemption) Verify(proof *RedemptionProof2) bool {
	if s == nil || s.consumed {
		return false
	}
	s.consumed = true

	group := s.pp.Group()
	if proof == nil || !validScalar(group, proof.R0) || !validScalar(group, proof.Rd) {
		return false
	}
	ch, err := redemptionChallenge(group, s.token, s.a)
	if err != nil {
		return false
	}
	rhs := curve.MultiScalarMult(group,
		[]curve.Scalar{neg(ch), proof.R0, proof.Rd},
		[]curve.Point{s.pp.Gxt, s.token.H, s.pp.Gd})
	return s.commitment.Equal(rhs)
}

// ExtractClientSecret recovers the client's secret key from two accepted presentations of the same
// token, which reuse the same commitment for two different challenges.
//
// Since rd = -c⋅sk_c + (wd' + wd) and r0 = c⋅α⁻¹ + w0, two responses sharing their randomness give
// sk_c = (rd₁ - rd₂)/(c₂ - c₁) and α⁻¹ = (r0₁ - r0₂)/(c₁ - c₂).
// The result is checked against the token: sk_c•Gd = α⁻¹•H - Gxt.
func ExtractClientSecret(pp *PublicParams, first, second *Presentation) (curve.Scalar, error) {
	if err := pp.Validate(); err != nil {
		return nil, fmt.Errorf("token.ExtractClientSecret: %w", err)
	}
	group := pp.Group()
	for _, p := range []*Presentation{first, second} {
		if p == nil || p.Proof1 == nil || p.Proof2 == nil || !p.Proof1.Token.validate(group) ||
			!validPoint(group, p.Proof1.Commitment) || !validScalar(group, p.Challenge) ||
			!validScalar(group, p.Proof2.R0) || !validScalar(group, p.Proof2.Rd) {
			return nil, fmt.Errorf("token.ExtractClientSecret: %w: presentation", ErrInvalidInput)
		}
	}
	t := first.Proof1.Token
	if !t.Equal(second.Proof1.Token) || !first.Proof1.Commitment.Equal(second.Proof1.Commitment) {
		return nil, fmt.Errorf("token.ExtractClientSecret: %w", ErrNotForked)
	}

	c1, err := redemptionChallenge(group, t, first.Challenge)
	if err != nil {
		return nil, fmt.Errorf("token.ExtractClientSecret: %w", err)
	}
	c2, err := redemptionChallenge(group, t, second.Challenge)
	if err != nil {
		return nil, fmt.Errorf("token.ExtractClientSecret: %w", err)
	}
	denominator := group.NewScalar().Set(c2).Sub(c1)
	if denominator.IsZero() {
		return nil, fmt.Errorf("token.ExtractClientSecret: %w: identical challenges", ErrNotForked)
	}
	denominator.Invert()

	secret := group.NewScalar().Set(first.Proof2.Rd).Sub(second.Proof2.Rd).Mul(denominator)
	alphaInv := group.NewScalar().Set(second.Proof2.R0).Sub(first.Proof2.R0).Mul(denominator)

	if !secret.Act(pp.Gd).Equal(alphaInv.Act(t.H).Sub(pp.Gxt)) {
		return nil, fmt.Errorf("token.ExtractClientSecret: %w: responses are inconsistent", ErrInvalidInput)
	}
	return secret, nil
}
