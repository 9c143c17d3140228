package token

import (
	"fmt"
	"io"

	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
)

// InitMessage is the first message of an issuance, sent by the server.
type InitMessage struct {
	// SigmaZ = sk_s•(Gxt + pk_c)
	SigmaZ curve.Point
	// SigmaA = w•pk_s
	SigmaA curve.Point
	// SigmaB = w•(Gxt + pk_c)
	SigmaB curve.Point
}

// Token is the credential obtained from an issuance.
//
// It carries no secret, and can be presented by anyone holding the matching Witness and client key.
type Token struct {
	// H = alpha•(Gxt + pk_c)
	H curve.Point
	// SigmaZ is the blinded SigmaZ of the InitMessage.
	SigmaZ curve.Point
	// Pi is the attribute embedded in the token.
	Pi curve.Scalar
	// SigmaC is the unblinded challenge of the signature.
	SigmaC curve.Scalar
	// SigmaR is the unblinded response of the signature.
	SigmaR curve.Scalar
}

// Witness is the secret the client keeps next to its Token, needed to present it.
type Witness struct {
	Alpha curve.Scalar
}

// Group returns the group of the token.
func (t *Token) Group() curve.Curve {
	return t.H.Curve()
}

// Equal returns true if both tokens have the same fields.
func (t *Token) Equal(other *Token) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.H.Equal(other.H) &&
		t.SigmaZ.Equal(other.SigmaZ) &&
		t.Pi.Equal(other.Pi) &&
		t.SigmaC.Equal(other.SigmaC) &&
		t.SigmaR.Equal(other.SigmaR)
}

func (t *Token) validate(group curve.Curve) bool {
	return t != nil &&
		validPoint(group, t.H) &&
		validPoint(group, t.SigmaZ) &&
		validScalar(group, t.Pi) &&
		validScalar(group, t.SigmaC) &&
		validScalar(group, t.SigmaR)
}

// ServerIssuance is the server state between the InitMessage and its response to the client's challenge.
//
// It can only be used once.
type ServerIssuance struct {
	key *ServerKey
	w   curve.Scalar
}

// NewServerIssuance starts an issuance for the client with public key clientPublic.
func NewServerIssuance(rand io.Reader, key *ServerKey, clientPublic curve.Point, pp *PublicParams) (*InitMessage, *ServerIssuance, error) {
	if err := pp.Validate(); err != nil {
		return nil, nil, fmt.Errorf("token.NewServerIssuance: %w", err)
	}
	group := pp.Group()
	if key == nil || !validScalar(group, key.Secret) || !validPoint(group, key.Public) {
		return nil, nil, fmt.Errorf("token.NewServerIssuance: %w: server key", ErrInvalidInput)
	}
	if !validPoint(group, clientPublic) {
		return nil, nil, fmt.Errorf("token.NewServerIssuance: %w: client public key", ErrInvalidInput)
	}

	gamma := pp.Gxt.Add(clientPublic)
	w := sample.ScalarUnit(rand, group)

	msg := &InitMessage{
		SigmaZ: key.Secret.Act(gamma),
		SigmaA: w.Act(key.Public),
		SigmaB: w.Act(gamma),
	}
	return msg, &ServerIssuance{key: key, w: w}, nil
}

// Issue returns sigma_r = sk_s⋅sigma_c + w, the server's response to the blinded challenge sigmaC.
//
// The ephemeral w is erased afterwards, and further calls return ErrSessionConsumed.
func (s *ServerIssuance) Issue(sigmaC curve.Scalar) (curve.Scalar, error) {
	if s == nil || s.w == nil {
		return nil, fmt.Errorf("token.ServerIssuance.Issue: %w", ErrSessionConsumed)
	}
	group := s.w.Curve()
	if !validScalar(group, sigmaC) {
		return nil, fmt.Errorf("token.ServerIssuance.Issue: %w: challenge", ErrInvalidInput)
	}
	sigmaR := group.NewScalar().Set(s.key.Secret).Mul(sigmaC).Add(s.w)
	zero(s.w)
	s.w = nil
	return sigmaR, nil
}

// ClientIssuance is the client state between its blinded challenge and the server's response.
//
// It can only be used once.
type ClientIssuance struct {
	pp           *PublicParams
	serverPublic curve.Point
	pi           curve.Scalar
	alpha, beta2 curve.Scalar
	h, sigmaZ    curve.Point
	sigmaC       curve.Scalar
	// commitment = Sigma_a_ + Sigma_b_
	commitment curve.Point
	consumed   bool
}

// NewClientIssuance processes the server's InitMessage, and returns the blinded challenge sigma_c for the server.
//
// pi is the attribute the resulting token will carry.
func NewClientIssuance(rand io.Reader, key *ClientKey, pi curve.Scalar, pp *PublicParams, serverPublic curve.Point, init *InitMessage) (curve.Scalar, *ClientIssuance, error) {
	if err := pp.Validate(); err != nil {
		return nil, nil, fmt.Errorf("token.NewClientIssuance: %w", err)
	}
	group := pp.Group()
	if key == nil || !validScalar(group, key.Secret) || !validPoint(group, key.Public) {
		return nil, nil, fmt.Errorf("token.NewClientIssuance: %w: client key", ErrInvalidInput)
	}
	if !validScalar(group, pi) {
		return nil, nil, fmt.Errorf("token.NewClientIssuance: %w: attribute", ErrInvalidInput)
	}
	if !validPoint(group, serverPublic) {
		return nil, nil, fmt.Errorf("token.NewClientIssuance: %w: server public key", ErrInvalidInput)
	}
	if init == nil || !validPoint(group, init.SigmaZ) || !validPoint(group, init.SigmaA) || !validPoint(group, init.SigmaB) {
		return nil, nil, fmt.Errorf("token.NewClientIssuance: %w: init message", ErrInvalidInput)
	}

	alpha := sample.ScalarUnit(rand, group)
	beta1 := sample.Scalar(rand, group)
	beta2 := sample.Scalar(rand, group)

	// H = α•(Gxt + pk_c)
	H := alpha.Act(pp.Gxt.Add(key.Public))
	// Σz' = α•Σz
	sigmaZ := alpha.Act(init.SigmaZ)
	// Σa' = β₁•G0 + β₂•pk_s + Σa
	sigmaA := curve.MultiScalarMult(group,
		[]curve.Scalar{beta1, beta2, one(group)},
		[]curve.Point{pp.G0, serverPublic, init.SigmaA})
	// Σb' = β₁•Σz' + β₂•H + α•Σb
	sigmaB := curve.MultiScalarMult(group,
		[]curve.Scalar{beta1, beta2, alpha},
		[]curve.Point{sigmaZ, H, init.SigmaB})

	sigmaCBlinded, err := challenge(group, H, pi, sigmaZ, sigmaA, sigmaB)
	if err != nil {
		return nil, nil, fmt.Errorf("token.NewClientIssuance: %w", err)
	}
	sigmaC := group.NewScalar().Set(sigmaCBlinded).Add(beta1)
	zero(beta1)

	return sigmaC, &ClientIssuance{
		pp:           pp,
		serverPublic: serverPublic,
		pi:           group.NewScalar().Set(pi),
		alpha:        alpha,
		beta2:        beta2,
		h:            H,
		sigmaZ:       sigmaZ,
		sigmaC:       sigmaCBlinded,
		commitment:   sigmaA.Add(sigmaB),
	}, nil
}

// Finalize unblinds the server's response sigmaR, and checks the resulting signature.
//
// It returns ErrIssuanceVerification if the signature is invalid. In both cases the state is consumed.
func (c *ClientIssuance) Finalize(sigmaR curve.Scalar) (*Token, *Witness, error) {
	if c == nil || c.consumed {
		return nil, nil, fmt.Errorf("token.ClientIssuance.Finalize: %w", ErrSessionConsumed)
	}
	c.consumed = true
	defer zero(c.beta2)

	group := c.pp.Group()
	if !validScalar(group, sigmaR) {
		zero(c.alpha)
		return nil, nil, fmt.Errorf("token.ClientIssuance.Finalize: %w: response", ErrInvalidInput)
	}

	// σr' = σr + β₂
	sigmaRUnblinded := group.NewScalar().Set(sigmaR).Add(c.beta2)

	// Σa' + Σb' = σr'•(H + pk_s) - σc'•(G0 + Σz')
	negC := neg(c.sigmaC)
	rhs := curve.MultiScalarMult(group,
		[]curve.Scalar{sigmaRUnblinded, sigmaRUnblinded, negC, negC},
		[]curve.Point{c.h, c.serverPublic, c.pp.G0, c.sigmaZ})
	if !c.commitment.Equal(rhs) {
		zero(c.alpha)
		return nil, nil, fmt.Errorf("token.ClientIssuance.Finalize: %w", ErrIssuanceVerification)
	}

	t := &Token{
		H:      c.h,
		SigmaZ: c.sigmaZ,
		Pi:     c.pi,
		SigmaC: c.sigmaC,
		SigmaR: sigmaRUnblinded,
	}
	return t, &Witness{Alpha: c.alpha}, nil
}
