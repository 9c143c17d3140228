package redeem

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/party"
	"github.com/taurusgroup/uprove-tokens/pkg/protocol"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

const protocolID = "uprove/redeem"

// Result is the server's output of an accepted redemption.
type Result struct {
	// Token is the presented token, which the server may record to detect double presentations.
	Token *token.Token
}

// Presentation is the client's output of a redemption.
//
// The client does not learn whether the server accepted it.
type Presentation = token.Presentation

func info(group curve.Curve, selfID, otherID party.ID) round.Info {
	return round.Info{
		ProtocolID:       protocolID,
		FinalRoundNumber: 2,
		SelfID:           selfID,
		PartyIDs:         []party.ID{selfID, otherID},
		Group:            group,
	}
}

// StartClient returns a StartFunc for the presentation of t, with the witness obtained during its issuance.
//
// The client sends the first message.
func StartClient(pp *token.PublicParams, key *token.ClientKey, t *token.Token, witness *token.Witness, selfID, otherID party.ID, source io.Reader) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		if err := pp.Validate(); err != nil {
			return nil, fmt.Errorf("redeem.StartClient: %w", err)
		}
		if err := key.Validate(pp); err != nil {
			return nil, fmt.Errorf("redeem.StartClient: %w", err)
		}
		if t == nil || witness == nil {
			return nil, fmt.Errorf("redeem.StartClient: %w: missing token", token.ErrInvalidInput)
		}
		helper, err := round.NewSession(info(pp.Group(), selfID, otherID), sessionID, pp)
		if err != nil {
			return nil, fmt.Errorf("redeem.StartClient: %w", err)
		}
		if source == nil {
			source = rand.Reader
		}
		return &round1C{
			Helper:  helper,
			source:  source,
			pp:      pp,
			key:     key,
			token:   t,
			witness: witness,
		}, nil
	}
}

// StartServer returns a StartFunc for the verification of a token issued under serverPublic.
func StartServer(pp *token.PublicParams, serverPublic curve.Point, selfID, otherID party.ID, source io.Reader) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		if err := pp.Validate(); err != nil {
			return nil, fmt.Errorf("redeem.StartServer: %w", err)
		}
		if serverPublic == nil || serverPublic.Curve() != pp.Group() || serverPublic.IsIdentity() {
			return nil, fmt.Errorf("redeem.StartServer: %w: server public key", token.ErrInvalidInput)
		}
		helper, err := round.NewSession(info(pp.Group(), selfID, otherID), sessionID, pp)
		if err != nil {
			return nil, fmt.Errorf("redeem.StartServer: %w", err)
		}
		if source == nil {
			source = rand.Reader
		}
		return &round1S{
			Helper:       helper,
			source:       source,
			pp:           pp,
			serverPublic: serverPublic,
		}, nil
	}
}
