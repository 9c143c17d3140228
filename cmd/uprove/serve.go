package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/taurusgroup/uprove-tokens/pkg/service"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP issuer and verifier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			pp, err := loadParams(c.Params)
			if err != nil {
				return err
			}
			key, err := loadServerKey(c.Key, pp)
			if err != nil {
				return err
			}
			handler, err := service.NewServer(pp, key, service.Config{
				SessionTTL:  c.SessionTTL,
				MaxSessions: c.MaxSessions,
			}, log, nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              c.Listen,
				Handler:           handler,
				ReadHeaderTimeout: 5 * time.Second,
			}
			errs := make(chan error, 1)
			go func() {
				log.Info().Str("listen", c.Listen).Str("group", pp.Group().Name()).Msg("serving")
				errs <- srv.ListenAndServe()
			}()

			select {
			case err = <-errs:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	defaults := service.DefaultConfig()
	cmd.Flags().String("params", "params.yaml", "public parameters file")
	cmd.Flags().String("key", "server.yaml", "server key file")
	cmd.Flags().String("listen", ":8080", "listen address")
	cmd.Flags().Duration("session-ttl", defaults.SessionTTL, "time allowed between the two requests of an exchange")
	cmd.Flags().Int("max-sessions", defaults.MaxSessions, "maximum number of pending exchanges per protocol")
	return cmd
}
