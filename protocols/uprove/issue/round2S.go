package issue

import (
	"errors"

	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
	zksch "github.com/taurusgroup/uprove-tokens/pkg/zk/sch"
)

// message2S carries the issuer's response to the blinded challenge.
type message2S struct {
	SigmaR curve.Scalar
}

func (message2S) RoundNumber() round.Number { return 2 }

// round2S is the second round from the Server's perspective.
type round2S struct {
	*round1S
	state  *token.ServerIssuance
	init   *token.InitMessage
	sigmaC curve.Scalar
}

// VerifyMessage implements round.Round.
//
// The client must prove knowledge of sk_c such that pk_c = sk_c•Gd.
func (r *round2S) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message1C)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.SigmaC == nil || body.Proof == nil {
		return round.ErrNilFields
	}
	if !body.Proof.Verify(r.HashForID(msg.From), r.pp.Gd, r.clientPublic) {
		return errors.New("invalid proof of knowledge of the client key")
	}
	return nil
}

// StoreMessage implements round.Round.
func (r *round2S) StoreMessage(msg round.Message) error {
	r.sigmaC = msg.Content.(*message1C).SigmaC
	return nil
}

// Finalize implements round.Round.
//
// It sends σr = sk_s⋅σc + w, which ends the protocol for the server.
func (r *round2S) Finalize(out chan<- *round.Message) (round.Session, error) {
	sigmaR, err := r.state.Issue(r.sigmaC)
	if err != nil {
		return r, err
	}
	if err = r.SendMessage(out, &message2S{SigmaR: sigmaR}); err != nil {
		return r, err
	}
	return r.ResultRound(&Transcript{
		ClientPublic: r.clientPublic,
		Init:         r.init,
		SigmaC:       r.sigmaC,
		SigmaR:       sigmaR,
	}), nil
}

// MessageContent implements round.Round.
func (r *round2S) MessageContent() round.Content {
	group := r.Group()
	return &message1C{
		SigmaC: group.NewScalar(),
		Proof:  zksch.EmptyProof(group),
	}
}

// Number implements round.Round.
func (round2S) Number() round.Number { return 2 }
