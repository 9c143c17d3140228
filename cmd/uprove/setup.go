package main

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Generate fresh public parameters",
		Long: `Generate fresh public parameters G0, Gxt and Gd.

This is a trusted setup: the secret relating G0 and Gxt is erased before the parameters
are written, but whoever runs this command must be trusted to do so.`,
		RunE: func(*cobra.Command, []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			group, err := curve.FromName(c.Group)
			if err != nil {
				return err
			}
			pp := token.Setup(rand.Reader, group)
			if err = saveParams(c.Out, pp); err != nil {
				return fmt.Errorf("setup: %w", err)
			}
			log.Info().Str("group", group.Name()).Str("out", c.Out).Msg("parameters generated")
			return nil
		},
	}
	cmd.Flags().String("group", curve.Ristretto255{}.Name(), "group, ristretto255 or secp256k1")
	cmd.Flags().String("out", "-", "output file, - for stdout")
	return cmd
}
