package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/taurusgroup/uprove-tokens/internal/params"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
	"github.com/taurusgroup/uprove-tokens/pkg/party"
	"github.com/taurusgroup/uprove-tokens/pkg/pool"
	"github.com/taurusgroup/uprove-tokens/pkg/protocol"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
	"github.com/taurusgroup/uprove-tokens/protocols/uprove"
)

const (
	demoServerID party.ID = "server"
	demoClientID party.ID = "client"
)

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Issue and redeem tokens between an in-process server and client",
		RunE: func(*cobra.Command, []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			source := pool.NewLockedReader(randomness(c.Seed))

			var pp *token.PublicParams
			if c.Params != "" {
				if pp, err = loadParams(c.Params); err != nil {
					return err
				}
			} else {
				group, err := curve.FromName(c.Group)
				if err != nil {
					return err
				}
				pp = token.Setup(source, group)
			}
			serverKey := token.NewServerKey(source, pp)
			clientKey := token.NewClientKey(source, pp)

			pl := pool.NewPool(c.Workers)
			defer pl.TearDown()

			start := time.Now()
			results := pl.Parallelize(c.Sessions, func(i int) interface{} {
				return runDemoSession(i, pp, serverKey, clientKey, source)
			})
			failed := 0
			for i, res := range results {
				if err, ok := res.(error); ok && err != nil {
					failed++
					log.Error().Err(err).Int("session", i).Msg("session failed")
				}
			}
			elapsed := time.Since(start)
			log.Info().
				Str("group", pp.Group().Name()).
				Int("sessions", c.Sessions).
				Int("failed", failed).
				Int("workers", pl.Workers()).
				Dur("elapsed", elapsed).
				Msg("demo finished")
			if failed > 0 {
				return fmt.Errorf("demo: %d of %d sessions failed", failed, c.Sessions)
			}
			return nil
		},
	}
	cmd.Flags().String("params", "", "public parameters file, fresh parameters are generated if empty")
	cmd.Flags().String("group", curve.Ristretto255{}.Name(), "group used for fresh parameters")
	cmd.Flags().Int("sessions", 16, "number of tokens to issue and redeem")
	cmd.Flags().Int("workers", 0, "number of workers, 0 for one per CPU")
	cmd.Flags().String("seed", "", "seed for reproducible runs, crypto/rand is used if empty")
	return cmd
}

// randomness returns crypto/rand, or a deterministic stream when a seed is given.
func randomness(seed string) io.Reader {
	if seed == "" {
		return rand.Reader
	}
	return sample.NewSeededReader([]byte(seed))
}

// runDemoSession issues a token and redeems it, returning nil on success.
func runDemoSession(i int, pp *token.PublicParams, serverKey *token.ServerKey, clientKey *token.ClientKey, source io.Reader) error {
	sessionLog := log.With().Int("session", i).Logger()

	sessionID := make([]byte, params.SessionIDBytes)
	if _, err := io.ReadFull(source, sessionID); err != nil {
		return err
	}
	pi := sample.Scalar(source, pp.Group())

	server, err := protocol.NewTwoPartyHandler(
		uprove.IssueServer(pp, serverKey, clientKey.Public, demoServerID, demoClientID, source),
		sessionID, true, protocol.WithLogger(sessionLog))
	if err != nil {
		return err
	}
	client, err := protocol.NewTwoPartyHandler(
		uprove.IssueClient(pp, clientKey, pi, serverKey.Public, demoClientID, demoServerID, source),
		sessionID, false, protocol.WithLogger(sessionLog))
	if err != nil {
		return err
	}
	connect(server, client)
	if _, err = server.Result(); err != nil {
		return err
	}
	res, err := client.Result()
	if err != nil {
		return err
	}
	credential, ok := res.(*uprove.Credential)
	if !ok {
		return errors.New("demo: unexpected issuance result")
	}

	if _, err = io.ReadFull(source, sessionID); err != nil {
		return err
	}
	client, err = protocol.NewTwoPartyHandler(
		uprove.RedeemClient(pp, clientKey, credential, demoClientID, demoServerID, source),
		sessionID, true, protocol.WithLogger(sessionLog))
	if err != nil {
		return err
	}
	server, err = protocol.NewTwoPartyHandler(
		uprove.RedeemServer(pp, serverKey.Public, demoServerID, demoClientID, source),
		sessionID, false, protocol.WithLogger(sessionLog))
	if err != nil {
		return err
	}
	connect(client, server)
	if _, err = client.Result(); err != nil {
		return err
	}
	_, err = server.Result()
	return err
}

// connect relays the messages of a and b to each other, and returns once both are done.
func connect(a, b *protocol.TwoPartyHandler) {
	var wg sync.WaitGroup
	relay := func(from, to *protocol.TwoPartyHandler) {
		defer wg.Done()
		for msg := range from.Listen() {
			to.Accept(msg)
		}
	}
	wg.Add(2)
	go relay(a, b)
	go relay(b, a)
	wg.Wait()
}
