package redeem

import (
	"fmt"

	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

// round2S is the last round from the Server's perspective.
type round2S struct {
	*round1S
	state  *token.ServerRedemption
	proof2 *token.RedemptionProof2
}

// VerifyMessage implements round.Round.
func (r *round2S) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message2C)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.Proof == nil || body.Proof.R0 == nil || body.Proof.Rd == nil {
		return round.ErrNilFields
	}
	return nil
}

// StoreMessage implements round.Round.
func (r *round2S) StoreMessage(msg round.Message) error {
	r.proof2 = msg.Content.(*message2C).Proof
	return nil
}

// Finalize implements round.Round.
//
// It checks Commitment = -c•Gxt + r0•H + rd•Gd, and aborts with token.ErrProofRejected otherwise.
func (r *round2S) Finalize(chan<- *round.Message) (round.Session, error) {
	if !r.state.Verify(r.proof2) {
		return r.AbortRound(fmt.Errorf("redeem: %w", token.ErrProofRejected), r.OtherID()), nil
	}
	return r.ResultRound(&Result{Token: r.state.Token()}), nil
}

// MessageContent implements round.Round.
func (r *round2S) MessageContent() round.Content {
	return &message2C{Proof: token.EmptyRedemptionProof2(r.Group())}
}

// Number implements round.Round.
func (round2S) Number() round.Number { return 2 }
