package main

import (
	"crypto/rand"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
	"github.com/taurusgroup/uprove-tokens/pkg/service"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Obtain and present tokens from a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := service.Dial(ctx, c.URL, &http.Client{Timeout: 10 * time.Second}, nil)
			if err != nil {
				return err
			}
			pp := client.Params()

			var key *token.ClientKey
			if c.Key != "" {
				if key, err = loadClientKey(c.Key, pp); err != nil {
					return err
				}
			} else {
				key = token.NewClientKey(rand.Reader, pp)
				log.Debug().Msg("using an ephemeral client key")
			}

			for i := 0; i < c.Sessions; i++ {
				pi := sample.Scalar(rand.Reader, pp.Group())
				t, witness, err := client.Issue(ctx, key, pi)
				if err != nil {
					return err
				}
				log.Info().Int("session", i).Msg("token issued")
				if _, err = client.Redeem(ctx, key, t, witness); err != nil {
					return err
				}
				log.Info().Int("session", i).Msg("token redeemed")
			}
			return nil
		},
	}
	cmd.Flags().String("url", "http://localhost:8080", "server URL")
	cmd.Flags().String("key", "", "client key file, an ephemeral key is used if empty")
	cmd.Flags().Int("sessions", 1, "number of tokens to issue and redeem")
	return cmd
}
