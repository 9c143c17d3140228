package redeem

import (
	"io"

	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

// message1C carries the token and the client's commitment.
type message1C struct {
	Proof *token.RedemptionProof1
}

func (message1C) RoundNumber() round.Number { return 1 }

// round1C is the first round from the Client's perspective.
type round1C struct {
	*round.Helper
	source  io.Reader
	pp      *token.PublicParams
	key     *token.ClientKey
	token   *token.Token
	witness *token.Witness
}

// VerifyMessage implements round.Round.
//
// The client starts the protocol, so there is nothing to verify.
func (r *round1C) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (r *round1C) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
func (r *round1C) Finalize(out chan<- *round.Message) (round.Session, error) {
	proof, state, err := token.NewClientRedemption(r.source, r.pp, r.token, r.key, r.witness)
	if err != nil {
		return r, err
	}
	if err = r.SendMessage(out, &message1C{Proof: proof}); err != nil {
		return r, err
	}
	return &round2C{round1C: r, state: state, proof1: proof}, nil
}

// MessageContent implements round.Round.
func (round1C) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (round1C) Number() round.Number { return 1 }
