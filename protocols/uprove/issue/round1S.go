package issue

import (
	"io"

	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

// message1S carries the issuer's commitments.
type message1S struct {
	Init *token.InitMessage
}

func (message1S) RoundNumber() round.Number { return 1 }

// round1S is the first round from the Server's perspective.
type round1S struct {
	*round.Helper
	source       io.Reader
	pp           *token.PublicParams
	key          *token.ServerKey
	clientPublic curve.Point
}

// VerifyMessage implements round.Round.
//
// The server starts the protocol, so there is nothing to verify.
func (r *round1S) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Round.
func (r *round1S) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Round.
//
// It draws the ephemeral w, and sends Σz = sk_s•(Gxt + pk_c), Σa = w•pk_s and Σb = w•(Gxt + pk_c).
func (r *round1S) Finalize(out chan<- *round.Message) (round.Session, error) {
	init, state, err := token.NewServerIssuance(r.source, r.key, r.clientPublic, r.pp)
	if err != nil {
		return r, err
	}
	if err = r.SendMessage(out, &message1S{Init: init}); err != nil {
		return r, err
	}
	return &round2S{round1S: r, state: state, init: init}, nil
}

// MessageContent implements round.Round.
func (round1S) MessageContent() round.Content { return nil }

// Number implements round.Round.
func (round1S) Number() round.Number { return 1 }
