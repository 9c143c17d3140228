package token_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

func TestExtractClientSecret(t *testing.T) {
	for _, group := range groups {
		f := newFixture(rand.Reader, group)
		tok, witness := f.issue(t, rand.Reader, sample.Scalar(rand.Reader, group))

		// a client replaying its commitment randomness for two presentations
		seed := []byte("replayed commitment")
		presentations := make([]*token.Presentation, 2)
		for i := range presentations {
			proof1, client, err := token.NewClientRedemption(sample.NewSeededReader(seed), f.pp, tok, f.client, witness)
			require.NoError(t, err)
			a, server, err := token.NewServerRedemption(rand.Reader, f.pp, f.server.Public, proof1)
			require.NoError(t, err)
			proof2, err := client.Respond(a)
			require.NoError(t, err)
			require.True(t, server.Verify(proof2), "each presentation is accepted on its own")
			presentations[i] = &token.Presentation{Proof1: proof1, Challenge: a, Proof2: proof2}
		}
		require.True(t, presentations[0].Proof1.Commitment.Equal(presentations[1].Proof1.Commitment))

		secret, err := token.ExtractClientSecret(f.pp, presentations[0], presentations[1])
		require.NoError(t, err, group.Name())
		assert.True(t, secret.Equal(f.client.Secret), group.Name())

		_, err = token.ExtractClientSecret(f.pp, presentations[0], presentations[0])
		assert.ErrorIs(t, err, token.ErrNotForked, "identical challenges")
	}
}

func TestExtractClientSecretFreshCommitments(t *testing.T) {
	for _, group := range groups {
		f := newFixture(rand.Reader, group)
		tok, witness := f.issue(t, rand.Reader, sample.Scalar(rand.Reader, group))

		first, ok := f.redeem(t, rand.Reader, tok, witness)
		require.True(t, ok)
		second, ok := f.redeem(t, rand.Reader, tok, witness)
		require.True(t, ok)

		_, err := token.ExtractClientSecret(f.pp, first, second)
		assert.ErrorIs(t, err, token.ErrNotForked, group.Name())

		_, err = token.ExtractClientSecret(f.pp, first, nil)
		assert.ErrorIs(t, err, token.ErrInvalidInput, group.Name())
	}
}
