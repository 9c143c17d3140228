package main

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

func newKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a client or server key pair",
		RunE: func(*cobra.Command, []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			pp, err := loadParams(c.Params)
			if err != nil {
				return err
			}
			switch c.Role {
			case roleClient:
				key := token.NewClientKey(rand.Reader, pp)
				err = saveKey(c.Out, roleClient, key.Secret, key.Public)
			case roleServer:
				key := token.NewServerKey(rand.Reader, pp)
				err = saveKey(c.Out, roleServer, key.Secret, key.Public)
			default:
				return fmt.Errorf("keygen: unknown role %q", c.Role)
			}
			if err != nil {
				return fmt.Errorf("keygen: %w", err)
			}
			log.Info().Str("role", c.Role).Str("out", c.Out).Msg("key generated")
			return nil
		},
	}
	cmd.Flags().String("params", "params.yaml", "public parameters file")
	cmd.Flags().String("role", roleClient, "client or server")
	cmd.Flags().String("out", "-", "output file, - for stdout")
	return cmd
}
