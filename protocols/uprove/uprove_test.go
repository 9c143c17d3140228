package uprove

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/uprove-tokens/internal/test"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
	"github.com/taurusgroup/uprove-tokens/pkg/party"
	"github.com/taurusgroup/uprove-tokens/pkg/protocol"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

var testGroups = []curve.Curve{curve.Ristretto255{}, curve.Secp256k1{}}

type keys struct {
	pp     *token.PublicParams
	client *token.ClientKey
	server *token.ServerKey
}

func newKeys(group curve.Curve) *keys {
	pp := token.Setup(rand.Reader, group)
	return &keys{
		pp:     pp,
		client: token.NewClientKey(rand.Reader, pp),
		server: token.NewServerKey(rand.Reader, pp),
	}
}

func runIssue(t *testing.T, k *keys, pi curve.Scalar) (*Transcript, *Credential) {
	serverID, clientID := test.PartyIDs()
	sessionID := []byte("issue")

	hServer, err := protocol.NewTwoPartyHandler(IssueServer(k.pp, k.server, k.client.Public, serverID, clientID, nil), sessionID, true)
	require.NoError(t, err)
	hClient, err := protocol.NewTwoPartyHandler(IssueClient(k.pp, k.client, pi, k.server.Public, clientID, serverID, nil), sessionID, false)
	require.NoError(t, err)
	require.NoError(t, test.RunHandlers(map[party.ID]protocol.Handler{serverID: hServer, clientID: hClient}))

	resultServer, err := hServer.Result()
	require.NoError(t, err)
	transcript, ok := resultServer.(*Transcript)
	require.True(t, ok, "failed to cast result to *Transcript")

	resultClient, err := hClient.Result()
	require.NoError(t, err)
	credential, ok := resultClient.(*Credential)
	require.True(t, ok, "failed to cast result to *Credential")
	return transcript, credential
}

func runRedeem(k *keys, credential *Credential) (clientResult, serverResult interface{}, clientErr, serverErr error) {
	serverID, clientID := test.PartyIDs()
	sessionID := []byte("redeem")

	hClient, err := protocol.NewTwoPartyHandler(RedeemClient(k.pp, k.client, credential, clientID, serverID, nil), sessionID, true)
	if err != nil {
		return nil, nil, err, nil
	}
	hServer, err := protocol.NewTwoPartyHandler(RedeemServer(k.pp, k.server.Public, serverID, clientID, nil), sessionID, false)
	if err != nil {
		return nil, nil, nil, err
	}
	if err = test.RunHandlers(map[party.ID]protocol.Handler{serverID: hServer, clientID: hClient}); err != nil {
		return nil, nil, err, err
	}
	clientResult, clientErr = hClient.Result()
	serverResult, serverErr = hServer.Result()
	return
}

func TestIssueAndRedeem(t *testing.T) {
	for _, group := range testGroups {
		k := newKeys(group)
		pi := sample.Scalar(rand.Reader, group)
		_, credential := runIssue(t, k, pi)
		assert.True(t, credential.Token.Pi.Equal(pi))

		for i := 0; i < 2; i++ {
			clientResult, serverResult, clientErr, serverErr := runRedeem(k, credential)
			require.NoError(t, clientErr)
			require.NoError(t, serverErr)

			result, ok := serverResult.(*Result)
			require.True(t, ok)
			assert.True(t, result.Token.Equal(credential.Token))
			_, ok = clientResult.(*Presentation)
			assert.True(t, ok)
		}
	}
}

func TestRedeemInvalidToken(t *testing.T) {
	for _, group := range testGroups {
		k := newKeys(group)
		_, credential := runIssue(t, k, group.NewScalar())
		forged := *credential.Token
		forged.Pi = sample.Scalar(rand.Reader, group)

		_, _, clientErr, serverErr := runRedeem(k, &Credential{Token: &forged, Witness: credential.Witness})
		assert.ErrorIs(t, serverErr, token.ErrTokenInvalid)
		var protocolErr protocol.Error
		require.ErrorAs(t, serverErr, &protocolErr)
		_, clientID := test.PartyIDs()
		assert.Equal(t, clientID, protocolErr.Culprit)
		// the client is told about the abort
		assert.Error(t, clientErr)
	}
}

func TestRedeemWrongWitness(t *testing.T) {
	k := newKeys(curve.Ristretto255{})
	_, credential := runIssue(t, k, sample.Scalar(rand.Reader, k.pp.Group()))
	stolen := &Credential{Token: credential.Token, Witness: &token.Witness{Alpha: sample.ScalarUnit(rand.Reader, k.pp.Group())}}

	clientResult, _, clientErr, serverErr := runRedeem(k, stolen)
	assert.ErrorIs(t, serverErr, token.ErrProofRejected)
	// the client finished its part before the server rejected the proof
	assert.NoError(t, clientErr)
	assert.NotNil(t, clientResult)
}

func TestIssueCorruptedMessage(t *testing.T) {
	k := newKeys(curve.Ristretto255{})
	serverID, clientID := test.PartyIDs()
	sessionID := []byte("corrupted")
	pi := sample.Scalar(rand.Reader, k.pp.Group())

	hServer, err := protocol.NewTwoPartyHandler(IssueServer(k.pp, k.server, k.client.Public, serverID, clientID, nil), sessionID, true)
	require.NoError(t, err)
	hClient, err := protocol.NewTwoPartyHandler(IssueClient(k.pp, k.client, pi, k.server.Public, clientID, serverID, nil), sessionID, false)
	require.NoError(t, err)

	// the second message of the server does not decode
	corrupt := func(msg *protocol.Message) *protocol.Message {
		if msg.From == serverID && msg.RoundNumber == 2 {
			corrupted := *msg
			corrupted.Data = []byte{0xff}
			return &corrupted
		}
		return msg
	}
	require.NoError(t, test.RunHandlersWith(map[party.ID]protocol.Handler{serverID: hServer, clientID: hClient}, corrupt))

	_, err = hServer.Result()
	require.NoError(t, err)
	_, err = hClient.Result()
	var protocolErr protocol.Error
	require.ErrorAs(t, err, &protocolErr)
	assert.Equal(t, serverID, protocolErr.Culprit)
}

func TestStopHandler(t *testing.T) {
	k := newKeys(curve.Secp256k1{})
	serverID, clientID := test.PartyIDs()
	h, err := protocol.NewTwoPartyHandler(IssueServer(k.pp, k.server, k.client.Public, serverID, clientID, nil), nil, true)
	require.NoError(t, err)

	msg, ok := <-h.Listen()
	require.True(t, ok)
	assert.Equal(t, clientID, msg.To)

	h.Stop()
	_, err = h.Result()
	assert.Error(t, err)
	// the peer is notified with a message for round 0
	abort, ok := <-h.Listen()
	require.True(t, ok)
	assert.Zero(t, abort.RoundNumber)
	_, ok = <-h.Listen()
	assert.False(t, ok)
}
