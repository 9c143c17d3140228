package redeem

import (
	"errors"
	"io"

	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

// message1S carries the server's freshness challenge.
type message1S struct {
	A curve.Scalar
}

func (message1S) RoundNumber() round.Number { return 2 }

// round1S is the first round from the Server's perspective.
type round1S struct {
	*round.Helper
	source       io.Reader
	pp           *token.PublicParams
	serverPublic curve.Point
	proof1       *token.RedemptionProof1
}

// VerifyMessage implements round.Round.
//
// The token itself is checked in Finalize, so that an invalid token ends in an abort round.
func (r *round1S) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message1C)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if body.Proof == nil || body.Proof.Token == nil || body.Proof.Commitment == nil {
		return round.ErrNilFields
	}
	return nil
}

// StoreMessage implements round.Round.
func (r *round1S) StoreMessage(msg round.Message) error {
	r.proof1 = msg.Content.(*message1C).Proof
	return nil
}

// Finalize implements round.Round.
//
// A token which was not issued under the server's key aborts with token.ErrTokenInvalid.
func (r *round1S) Finalize(out chan<- *round.Message) (round.Session, error) {
	a, state, err := token.NewServerRedemption(r.source, r.pp, r.serverPublic, r.proof1)
	if err != nil {
		if errors.Is(err, token.ErrTokenInvalid) || errors.Is(err, token.ErrInvalidInput) {
			return r.AbortRound(err, r.OtherID()), nil
		}
		return r, err
	}
	if err = r.SendMessage(out, &message1S{A: a}); err != nil {
		return r, err
	}
	return &round2S{round1S: r, state: state}, nil
}

// MessageContent implements round.Round.
func (r *round1S) MessageContent() round.Content {
	return &message1C{Proof: token.EmptyRedemptionProof1(r.Group())}
}

// Number implements round.Round.
func (round1S) Number() round.Number { return 1 }
