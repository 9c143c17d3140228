package token_test

import (
	"crypto/rand"
	"testing"

	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

func BenchmarkSetup(b *testing.B) {
	for _, group := range groups {
		b.Run(group.Name(), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				token.Setup(rand.Reader, group)
			}
		})
	}
}

func BenchmarkIssuance(b *testing.B) {
	for _, group := range groups {
		f := newFixture(rand.Reader, group)
		pi := sample.Scalar(rand.Reader, group)
		b.Run(group.Name()+"/ServerInitiate", func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _, _ = token.NewServerIssuance(rand.Reader, f.server, f.client.Public, f.pp)
			}
		})
		init, _, _ := token.NewServerIssuance(rand.Reader, f.server, f.client.Public, f.pp)
		b.Run(group.Name()+"/ClientQuery", func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_, _, _ = token.NewClientIssuance(rand.Reader, f.client, pi, f.pp, f.server.Public, init)
			}
		})
		b.Run(group.Name()+"/Full", func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				f.issue(b, rand.Reader, pi)
			}
		})
	}
}

func BenchmarkRedemption(b *testing.B) {
	for _, group := range groups {
		f := newFixture(rand.Reader, group)
		tok, witness := f.issue(b, rand.Reader, sample.Scalar(rand.Reader, group))
		b.Run(group.Name()+"/CheckToken", func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = token.CheckToken(f.pp, f.server.Public, tok)
			}
		})
		b.Run(group.Name()+"/Full", func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				f.redeem(b, rand.Reader, tok, witness)
			}
		})
	}
}
