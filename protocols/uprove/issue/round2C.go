package issue

import (
	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

// round2C is the last round from the Client's perspective.
type round2C struct {
	*round1C
	state  *token.ClientIssuance
	sigmaR curve.Scalar
}

// VerifyMessage implements round.Round.
func (r *round2C) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message2S)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.SigmaR == nil {
		return round.ErrNilFields
	}
	return nil
}

// StoreMessage implements round.Round.
func (r *round2C) StoreMessage(msg round.Message) error {
	r.sigmaR = msg.Content.(*message2S).SigmaR
	return nil
}

// Finalize implements round.Round.
//
// An invalid signature aborts the protocol with token.ErrIssuanceVerification, blaming the server.
func (r *round2C) Finalize(chan<- *round.Message) (round.Session, error) {
	t, witness, err := r.state.Finalize(r.sigmaR)
	if err != nil {
		return r.AbortRound(err, r.OtherID()), nil
	}
	return r.ResultRound(&Credential{Token: t, Witness: witness}), nil
}

// MessageContent implements round.Round.
func (r *round2C) MessageContent() round.Content {
	return &message2S{SigmaR: r.Group().NewScalar()}
}

// Number implements round.Round.
func (round2C) Number() round.Number { return 2 }
