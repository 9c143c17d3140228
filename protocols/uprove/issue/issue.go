package issue

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

const protocolID = "uprove/issue"

// Credential is the client's output of an issuance.
type Credential struct {
	Token   *token.Token
	Witness *token.Witness
}

// Transcript is the server's output of an issuance.
//
// It contains everything the server saw, none of which can be linked to the token obtained by the client.
type Transcript struct {
	ClientPublic curve.Point
	Init         *token.InitMessage
	SigmaC       curve.Scalar
	SigmaR       curve.Scalar
}

func info(group curve.Curve, selfID, otherID party.ID) round.Info {
	return round.Info{
		ProtocolID:       protocolID,
		FinalRoundNumber: 2,
		SelfID:           selfID,
		PartyIDs:         []party.ID{selfID, otherID},
		Group:            group,
	}
}

// StartServer returns a StartFunc for the issuer's side of the protocol.
//
// The server sends the first message. It only answers a client which proves knowledge of the secret key
// behind clientPublic.
func StartServer(pp *token.PublicParams, key *token.ServerKey, clientPublic curve.Point, selfID, otherID party.ID, source io.Reader) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		if err := pp.Validate(); err != nil {
			return nil, fmt.Errorf("issue.StartServer: %w", err)
		}
		if err := key.Validate(pp); err != nil {
			return nil, fmt.Errorf("issue.StartServer: %w", err)
		}
		if clientPublic == nil || clientPublic.Curve() != pp.Group() || clientPublic.IsIdentity() {
			return nil, fmt.Errorf("issue.StartServer: %w: client public key", token.ErrInvalidInput)
		}
		helper, err := round.NewSession(info(pp.Group(), selfID, otherID), sessionID, pp)
		if err != nil {
			return nil, fmt.Errorf("issue.StartServer: %w", err)
		}
		if source == nil {
			source = rand.Reader
		}
		return &round1S{
			Helper:       helper,
			source:       source,
			pp:           pp,
			key:          key,
			clientPublic: clientPublic,
		}, nil
	}
}

// StartClient returns a StartFunc for the client's side of the protocol.
//
// pi is the attribute embedded in the token, and serverPublic the key of the expected issuer.
func StartClient(pp *token.PublicParams, key *token.ClientKey, pi curve.Scalar, serverPublic curve.Point, selfID, otherID party.ID, source io.Reader) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		if err := pp.Validate(); err != nil {
			return nil, fmt.Errorf("issue.StartClient: %w", err)
		}
		if err := key.Validate(pp); err != nil {
			return nil, fmt.Errorf("issue.StartClient: %w", err)
		}
		if pi == nil || pi.Curve() != pp.Group() {
			return nil, fmt.Errorf("issue.StartClient: %w: attribute", token.ErrInvalidInput)
		}
		if serverPublic == nil || serverPublic.Curve() != pp.Group() || serverPublic.IsIdentity() {
			return nil, fmt.Errorf("issue.StartClient: %w: server public key", token.ErrInvalidInput)
		}
		helper, err := round.NewSession(info(pp.Group(), selfID, otherID), sessionID, pp)
		if err != nil {
			return nil, fmt.Errorf("issue.StartClient: %w", err)
		}
		if source == nil {
			source = rand.Reader
		}
		return &round1C{
			Helper:       helper,
			source:       source,
			pp:           pp,
			key:          key,
			pi:           pi,
			serverPublic: serverPublic,
		}, nil
	}
}
