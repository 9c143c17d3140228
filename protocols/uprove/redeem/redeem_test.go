package redeem

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/uprove-tokens/internal/round"
	"github.com/taurusgroup/uprove-tokens/internal/test"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

type setup struct {
	pp      *token.PublicParams
	client  *token.ClientKey
	server  *token.ServerKey
	token   *token.Token
	witness *token.Witness
}

func newSetup(t *testing.T, group curve.Curve) *setup {
	pp := token.Setup(rand.Reader, group)
	s := &setup{
		pp:     pp,
		client: token.NewClientKey(rand.Reader, pp),
		server: token.NewServerKey(rand.Reader, pp),
	}
	init, server, err := token.NewServerIssuance(rand.Reader, s.server, s.client.Public, pp)
	require.NoError(t, err)
	sigmaC, client, err := token.NewClientIssuance(rand.Reader, s.client, sample.Scalar(rand.Reader, group), pp, s.server.Public, init)
	require.NoError(t, err)
	sigmaR, err := server.Issue(sigmaC)
	require.NoError(t, err)
	s.token, s.witness, err = client.Finalize(sigmaR)
	require.NoError(t, err)
	return s
}

func (s *setup) start(t *testing.T, tok *token.Token) (round.Session, round.Session) {
	serverID, clientID := test.PartyIDs()
	client, err := StartClient(s.pp, s.client, tok, s.witness, clientID, serverID, nil)([]byte("session"))
	require.NoError(t, err, "round creation should not result in an error")
	server, err := StartServer(s.pp, s.server.Public, serverID, clientID, nil)([]byte("session"))
	require.NoError(t, err, "round creation should not result in an error")
	return client, server
}

func TestRedeem(t *testing.T) {
	for _, group := range []curve.Curve{curve.Ristretto255{}, curve.Secp256k1{}} {
		s := newSetup(t, group)
		for i := 0; i < 2; i++ {
			client, server := s.start(t, s.token)
			client, server, err := test.Exchange(client, server, nil)
			require.NoError(t, err, "failed to process round")

			serverOutput, ok := server.(*round.Output)
			require.True(t, ok, "presentation %d", i)
			result, ok := serverOutput.Result.(*Result)
			require.True(t, ok)
			assert.True(t, result.Token.Equal(s.token))

			clientOutput, ok := client.(*round.Output)
			require.True(t, ok)
			presentation, ok := clientOutput.Result.(*Presentation)
			require.True(t, ok)
			assert.True(t, presentation.Proof1.Token.Equal(s.token))
		}
	}
}

// tamperResponse shifts the client's response r0.
type tamperResponse struct{}

func (tamperResponse) ModifyBefore(round.Session) {}

func (tamperResponse) ModifyContent(_ round.Session, content round.Content) {
	if msg, ok := content.(*message2C); ok {
		msg.Proof = &token.RedemptionProof2{
			R0: sample.Scalar(rand.Reader, msg.Proof.R0.Curve()),
			Rd: msg.Proof.Rd,
		}
	}
}

func TestRedeemProofRejected(t *testing.T) {
	s := newSetup(t, curve.Ristretto255{})
	client, server := s.start(t, s.token)

	_, server, err := test.Exchange(client, server, tamperResponse{})
	require.NoError(t, err)

	abort, ok := server.(*round.Abort)
	require.True(t, ok)
	assert.ErrorIs(t, abort.Err, token.ErrProofRejected)
	_, clientID := test.PartyIDs()
	assert.Equal(t, clientID, abort.Culprits[0])
}

func TestRedeemTokenInvalid(t *testing.T) {
	for _, group := range []curve.Curve{curve.Ristretto255{}, curve.Secp256k1{}} {
		s := newSetup(t, group)
		forged := *s.token
		forged.SigmaZ = sample.Point(rand.Reader, group)
		client, server := s.start(t, &forged)

		client, server, err := test.Exchange(client, server, nil)
		require.NoError(t, err)

		abort, ok := server.(*round.Abort)
		require.True(t, ok)
		assert.ErrorIs(t, abort.Err, token.ErrTokenInvalid)
		// the client never got a challenge
		assert.Equal(t, round.Number(2), client.Number())
	}
}

func TestRedeemOtherIssuer(t *testing.T) {
	s := newSetup(t, curve.Secp256k1{})
	other := token.NewServerKey(rand.Reader, s.pp)
	serverID, clientID := test.PartyIDs()
	client, err := StartClient(s.pp, s.client, s.token, s.witness, clientID, serverID, nil)(nil)
	require.NoError(t, err)
	server, err := StartServer(s.pp, other.Public, serverID, clientID, nil)(nil)
	require.NoError(t, err)

	_, server, err = test.Exchange(client, server, nil)
	require.NoError(t, err)
	abort, ok := server.(*round.Abort)
	require.True(t, ok)
	assert.ErrorIs(t, abort.Err, token.ErrTokenInvalid)
}
