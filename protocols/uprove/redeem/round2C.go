package redeem

import (
	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

// message2C carries the client's response.
type message2C struct {
	Proof *token.RedemptionProof2
}

func (message2C) RoundNumber() round.Number { return 2 }

// round2C is the last round from the Client's perspective.
type round2C struct {
	*round1C
	state  *token.ClientRedemption
	proof1 *token.RedemptionProof1
	a      curve.Scalar
}

// VerifyMessage implements round.Round.
func (r *round2C) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message1S)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.A == nil {
		return round.ErrNilFields
	}
	return nil
}

// StoreMessage implements round.Round.
func (r *round2C) StoreMessage(msg round.Message) error {
	r.a = msg.Content.(*message1S).A
	return nil
}

// Finalize implements round.Round.
//
// It answers the freshness challenge a with r0 = c⋅α⁻¹ + w0 and rd = -c⋅sk_c + wd' + wd.
func (r *round2C) Finalize(out chan<- *round.Message) (round.Session, error) {
	proof2, err := r.state.Respond(r.a)
	if err != nil {
		return r, err
	}
	if err = r.SendMessage(out, &message2C{Proof: proof2}); err != nil {
		return r, err
	}
	return r.ResultRound(&Presentation{Proof1: r.proof1, Challenge: r.a, Proof2: proof2}), nil
}

// MessageContent implements round.Round.
func (r *round2C) MessageContent() round.Content {
	return &message1S{A: r.Group().NewScalar()}
}

// Number implements round.Round.
func (round2C) Number() round.Number { return 2 }
