package issue

import (
	"io"

	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
	zksch "github.com/taurusgroup/uprove-tokens/pkg/zk/sch"
)

// message1C carries the client's blinded challenge.
type message1C struct {
	SigmaC curve.Scalar
	// Proof of knowledge of sk_c, for pk_c = sk_c•Gd.
	Proof *zksch.Proof
}

func (message1C) RoundNumber() round.Number { return 2 }

// round1C is the first round from the Client's perspective.
type round1C struct {
	*round.Helper
	source       io.Reader
	pp           *token.PublicParams
	key          *token.ClientKey
	pi           curve.Scalar
	serverPublic curve.Point
	init         *token.InitMessage
}

// VerifyMessage implements round.Round.
func (r *round1C) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message1S)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	init := body.Init
	if init == nil || init.SigmaZ == nil || init.SigmaA == nil || init.SigmaB == nil {
		return round.ErrNilFields
	}
	if init.SigmaZ.IsIdentity() || init.SigmaA.IsIdentity() || init.SigmaB.IsIdentity() {
		return token.ErrInvalidInput
	}
	return nil
}

// StoreMessage implements round.Round.
func (r *round1C) StoreMessage(msg round.Message) error {
	r.init = msg.Content.(*message1S).Init
	return nil
}

// Finalize implements round.Round.
//
// It blinds the issuer's commitments, and sends σc = FS(H, π, Σz', Σa', Σb') + β₁.
func (r *round1C) Finalize(out chan<- *round.Message) (round.Session, error) {
	sigmaC, state, err := token.NewClientIssuance(r.source, r.key, r.pi, r.pp, r.serverPublic, r.init)
	if err != nil {
		return r, err
	}
	proof := zksch.NewProof(r.source, r.HashForID(r.SelfID()), r.pp.Gd, r.key.Public, r.key.Secret)
	if err = r.SendMessage(out, &message1C{SigmaC: sigmaC, Proof: proof}); err != nil {
		return r, err
	}
	return &round2C{round1C: r, state: state}, nil
}

// MessageContent implements round.Round.
func (r *round1C) MessageContent() round.Content {
	return &message1S{Init: token.EmptyInitMessage(r.Group())}
}

// Number implements round.Round.
func (round1C) Number() round.Number { return 1 }
