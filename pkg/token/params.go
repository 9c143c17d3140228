package token

import (
	"fmt"
	"io"

	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
)

// PublicParams are the generators shared by the issuer and all clients.
//
// Gxt = G0 + xt•Gt for a setup secret xt and an auxiliary generator Gt, both discarded by Setup.
type PublicParams struct {
	G0, Gxt, Gd curve.Point
}

// Setup samples fresh public parameters for group.
//
// This is a trusted setup: whoever runs it learns the discrete logarithms relating the generators,
// and knowledge of xt allows forging tokens. Deployments which cannot trust a single party
// should replace it with a distributed ceremony.
func Setup(rand io.Reader, group curve.Curve) *PublicParams {
	g0 := sample.Point(rand, group)
	gt := sample.Point(rand, group)
	gd := sample.Point(rand, group)

	xt := sample.ScalarUnit(rand, group)
	gxt := g0.Add(xt.Act(gt))
	zero(xt)

	return &PublicParams{
		G0:  g0,
		Gxt: gxt,
		Gd:  gd,
	}
}

// Group returns the group of the parameters.
func (pp *PublicParams) Group() curve.Curve {
	return pp.G0.Curve()
}

// Validate checks that all generators are set, belong to the same group, and are not the identity.
func (pp *PublicParams) Validate() error {
	if pp == nil || pp.G0 == nil {
		return fmt.Errorf("token.PublicParams: %w: missing parameters", ErrInvalidInput)
	}
	group := pp.Group()
	for _, p := range []curve.Point{pp.G0, pp.Gxt, pp.Gd} {
		if !validPoint(group, p) {
			return fmt.Errorf("token.PublicParams: %w: invalid generator", ErrInvalidInput)
		}
	}
	return nil
}

func validPoint(group curve.Curve, p curve.Point) bool {
	return p != nil && p.Curve() == group && !p.IsIdentity()
}

func validScalar(group curve.Curve, s curve.Scalar) bool {
	return s != nil && s.Curve() == group
}
