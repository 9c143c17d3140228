package token_test

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

func TestTokenBitFlip(t *testing.T) {
	for _, group := range groups {
		f := newFixture(rand.Reader, group)
		tok, _ := f.issue(t, rand.Reader, sample.Scalar(rand.Reader, group))

		data, err := tok.SigmaC.MarshalBinary()
		require.NoError(t, err)
		for i := range data {
			for bit := 0; bit < 8; bit += 3 {
				mutated := append([]byte{}, data...)
				mutated[i] ^= 1 << bit
				sigmaC := group.NewScalar()
				if sigmaC.UnmarshalBinary(mutated) != nil {
					// not a canonical scalar anymore, which decoding already rejects
					continue
				}
				forged := *tok
				forged.SigmaC = sigmaC
				assert.ErrorIs(t, token.CheckToken(f.pp, f.server.Public, &forged), token.ErrTokenInvalid)

				proof1 := &token.RedemptionProof1{Token: &forged, Commitment: sample.Point(rand.Reader, group)}
				_, _, err = token.NewServerRedemption(rand.Reader, f.pp, f.server.Public, proof1)
				assert.ErrorIs(t, err, token.ErrTokenInvalid)
			}
		}
	}
}

func TestTokenMutations(t *testing.T) {
	for _, group := range groups {
		f := newFixture(rand.Reader, group)
		tok, _ := f.issue(t, rand.Reader, sample.Scalar(rand.Reader, group))

		mutations := map[string]func(tok *token.Token){
			"SigmaZ": func(tok *token.Token) { tok.SigmaZ = sample.Point(rand.Reader, group) },
			"H":      func(tok *token.Token) { tok.H = sample.Point(rand.Reader, group) },
			"Pi":     func(tok *token.Token) { tok.Pi = sample.Scalar(rand.Reader, group) },
			"SigmaR": func(tok *token.Token) { tok.SigmaR = sample.Scalar(rand.Reader, group) },
			"SigmaC": func(tok *token.Token) { tok.SigmaC = sample.Scalar(rand.Reader, group) },
		}
		for name, mutate := range mutations {
			for i := 0; i < 4; i++ {
				forged := *tok
				mutate(&forged)
				assert.ErrorIs(t, token.CheckToken(f.pp, f.server.Public, &forged), token.ErrTokenInvalid, name)
			}
		}

		// a token from another issuer
		other := token.NewServerKey(rand.Reader, f.pp)
		assert.ErrorIs(t, token.CheckToken(f.pp, other.Public, tok), token.ErrTokenInvalid)
		// identity points are never part of a genuine token
		forged := *tok
		forged.H = group.NewPoint()
		assert.ErrorIs(t, token.CheckToken(f.pp, f.server.Public, &forged), token.ErrTokenInvalid)
	}
}

func TestRedemptionResponseMutations(t *testing.T) {
	for _, group := range groups {
		f := newFixture(rand.Reader, group)
		tok, witness := f.issue(t, rand.Reader, sample.Scalar(rand.Reader, group))

		for _, field := range []string{"R0", "Rd"} {
			proof1, client, err := token.NewClientRedemption(rand.Reader, f.pp, tok, f.client, witness)
			require.NoError(t, err)
			a, server, err := token.NewServerRedemption(rand.Reader, f.pp, f.server.Public, proof1)
			require.NoError(t, err)
			proof2, err := client.Respond(a)
			require.NoError(t, err)
			one := group.NewScalar().SetNat(new(saferith.Nat).SetUint64(1))
			if field == "R0" {
				proof2.R0.Add(one)
			} else {
				proof2.Rd.Add(one)
			}
			assert.False(t, server.Verify(proof2), field)
		}

		// answering a different challenge than the one sent by the server
		proof1, client, err := token.NewClientRedemption(rand.Reader, f.pp, tok, f.client, witness)
		require.NoError(t, err)
		_, server, err := token.NewServerRedemption(rand.Reader, f.pp, f.server.Public, proof1)
		require.NoError(t, err)
		proof2, err := client.Respond(sample.Scalar(rand.Reader, group))
		require.NoError(t, err)
		assert.False(t, server.Verify(proof2))
	}
}
