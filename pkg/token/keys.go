package token

import (
	"fmt"
	"io"

	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
)

// ClientKey is the long-lived key of a client, with Public = Secret•Gd.
type ClientKey struct {
	Secret curve.Scalar
	Public curve.Point
}

// ServerKey is the long-lived signing key of an issuer, with Public = Secret⁻¹•G0.
type ServerKey struct {
	Secret curve.Scalar
	Public curve.Point
}

// NewClientKey samples a new client key pair.
func NewClientKey(rand io.Reader, pp *PublicParams) *ClientKey {
	secret := sample.ScalarUnit(rand, pp.Group())
	return &ClientKey{
		Secret: secret,
		Public: secret.Act(pp.Gd),
	}
}

// NewServerKey samples a new server key pair.
func NewServerKey(rand io.Reader, pp *PublicParams) *ServerKey {
	group := pp.Group()
	secret := sample.ScalarUnit(rand, group)
	inverse := group.NewScalar().Set(secret).Invert()
	return &ServerKey{
		Secret: secret,
		Public: inverse.Act(pp.G0),
	}
}

// Validate checks that k is a well formed key pair for pp.
func (k *ClientKey) Validate(pp *PublicParams) error {
	group := pp.Group()
	if k == nil || !validScalar(group, k.Secret) || k.Secret.IsZero() || !validPoint(group, k.Public) {
		return fmt.Errorf("token.ClientKey: %w: malformed key", ErrInvalidInput)
	}
	if !k.Secret.Act(pp.Gd).Equal(k.Public) {
		return fmt.Errorf("token.ClientKey: %w: public key does not match secret", ErrInvalidInput)
	}
	return nil
}

// Validate checks that k is a well formed key pair for pp.
func (k *ServerKey) Validate(pp *PublicParams) error {
	group := pp.Group()
	if k == nil || !validScalar(group, k.Secret) || k.Secret.IsZero() || !validPoint(group, k.Public) {
		return fmt.Errorf("token.ServerKey: %w: malformed key", ErrInvalidInput)
	}
	if !k.Secret.Act(k.Public).Equal(pp.G0) {
		return fmt.Errorf("token.ServerKey: %w: public key does not match secret", ErrInvalidInput)
	}
	return nil
}
