// Package uprove runs the issuance and redemption of anonymous tokens as two party protocols.
//
// The StartFuncs returned here are meant to be driven by a protocol.TwoPartyHandler.
// The server leads the issuance, and the client leads the redemption.
package uprove

import (
	"io"

	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/party"
	"github.com/taurusgroup/uprove-tokens/pkg/protocol"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
	"github.com/taurusgroup/uprove-tokens/protocols/uprove/issue"
	"github.com/taurusgroup/uprove-tokens/protocols/uprove/redeem"
)

type (
	Credential   = issue.Credential
	Transcript   = issue.Transcript
	Result       = redeem.Result
	Presentation = redeem.Presentation
)

// IssueServer initiates the issuance of a token for the client owning clientPublic.
//
// The result is a *Transcript. source provides the server's ephemeral randomness, and defaults to crypto/rand.
func IssueServer(pp *token.PublicParams, key *token.ServerKey, clientPublic curve.Point, selfID, otherID party.ID, source io.Reader) protocol.StartFunc {
	return issue.StartServer(pp, key, clientPublic, selfID, otherID, source)
}

// IssueClient obtains a token carrying the attribute pi, from the issuer owning serverPublic.
//
// The result is a *Credential, which must be kept secret by the client.
func IssueClient(pp *token.PublicParams, key *token.ClientKey, pi curve.Scalar, serverPublic curve.Point, selfID, otherID party.ID, source io.Reader) protocol.StartFunc {
	return issue.StartClient(pp, key, pi, serverPublic, selfID, otherID, source)
}

// RedeemClient presents a token obtained with IssueClient.
//
// The result is a *Presentation. The same credential can be presented several times.
func RedeemClient(pp *token.PublicParams, key *token.ClientKey, credential *Credential, selfID, otherID party.ID, source io.Reader) protocol.StartFunc {
	var (
		t       *token.Token
		witness *token.Witness
	)
	if credential != nil {
		t, witness = credential.Token, credential.Witness
	}
	return redeem.StartClient(pp, key, t, witness, selfID, otherID, source)
}

// RedeemServer verifies the presentation of a token issued under serverPublic.
//
// The result is a *Result. A rejected token or proof makes the handler fail with an error
// wrapping token.ErrTokenInvalid or token.ErrProofRejected.
func RedeemServer(pp *token.PublicParams, serverPublic curve.Point, selfID, otherID party.ID, source io.Reader) protocol.StartFunc {
	return redeem.StartServer(pp, serverPublic, selfID, otherID, source)
}
