// Package service exposes the issuer and verifier of anonymous tokens over HTTP.
//
// Each protocol takes two requests. The first one returns a session identifier, under which the
// server keeps its ephemeral state until the second request consumes it.
package service

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/taurusgroup/uprove-tokens/pkg/hash"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/pool"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
	zksch "github.com/taurusgroup/uprove-tokens/pkg/zk/sch"
)

const maxBodyBytes = 1 << 16

// Config holds the tunables of a Server.
type Config struct {
	// SessionTTL is how long the server waits for the second request of an exchange.
	SessionTTL time.Duration
	// MaxSessions bounds the number of exchanges waiting for their second request, per protocol.
	MaxSessions int
}

// DefaultConfig returns the Config used for zero fields.
func DefaultConfig() Config {
	return Config{
		SessionTTL:  time.Minute,
		MaxSessions: 10000,
	}
}

// Server issues and verifies tokens under a single key.
type Server struct {
	pp     *token.PublicParams
	key    *token.ServerKey
	source io.Reader
	log    zerolog.Logger

	issuances   *store[*pendingIssuance]
	redemptions *store[*token.ServerRedemption]
	metrics     *metrics
	router      chi.Router
}

// pendingIssuance is kept between the two requests of an issuance.
type pendingIssuance struct {
	state        *token.ServerIssuance
	clientPublic curve.Point
}

// NewServer returns a Server for key.
//
// The issuer only answers the second issuance request of a client proving knowledge of the
// secret behind the public key it gave in the first one.
//
// A nil source defaults to crypto/rand. Any other source is shared by concurrent requests behind a lock.
func NewServer(pp *token.PublicParams, key *token.ServerKey, config Config, log zerolog.Logger, source io.Reader) (*Server, error) {
	if err := pp.Validate(); err != nil {
		return nil, fmt.Errorf("service.NewServer: %w", err)
	}
	if err := key.Validate(pp); err != nil {
		return nil, fmt.Errorf("service.NewServer: %w", err)
	}
	defaults := DefaultConfig()
	if config.SessionTTL <= 0 {
		config.SessionTTL = defaults.SessionTTL
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = defaults.MaxSessions
	}
	if source == nil {
		source = rand.Reader
	} else {
		source = pool.NewLockedReader(source)
	}

	s := &Server{
		pp:          pp,
		key:         key,
		source:      source,
		log:         log.With().Str("component", "service").Str("group", pp.Group().Name()).Logger(),
		issuances:   newStore[*pendingIssuance](config.SessionTTL, config.MaxSessions, source),
		redemptions: newStore[*token.ServerRedemption](config.SessionTTL, config.MaxSessions, source),
	}
	s.metrics = newMetrics(func() float64 {
		return float64(s.issuances.len() + s.redemptions.len())
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/params", s.handleParams)
	r.Post("/issue/init", s.handleIssueInit)
	r.Post("/issue/finish", s.handleIssueFinish)
	r.Post("/redeem/commit", s.handleRedeemCommit)
	r.Post("/redeem/respond", s.handleRedeemRespond)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	s.router = r
	return s, nil
}

// keyProofHash is the transcript a client's key proof is bound to.
// Session identifiers are drawn by the server, so a proof cannot be replayed in another issuance.
func keyProofHash(pp *token.PublicParams, session string) *hash.Hash {
	return hash.New(
		hash.BytesWithDomain{TheDomain: "Protocol", Bytes: []byte("uprove/service/issue")},
		pp,
		hash.BytesWithDomain{TheDomain: "Session ID", Bytes: []byte(session)},
	)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleParams(w http.ResponseWriter, _ *http.Request) {
	params, err := s.pp.MarshalBinary()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err)
		return
	}
	public, err := token.EncodePoint(s.key.Public)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err)
		return
	}
	writeJSON(w, http.StatusOK, &ParamsResponse{
		Group:        s.pp.Group().Name(),
		Params:       params,
		ServerPublic: public,
	})
}

func (s *Server) handleIssueInit(w http.ResponseWriter, r *http.Request) {
	var req IssueInitRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	clientPublic, err := token.DecodePoint(s.pp.Group(), req.ClientPublic)
	if err != nil {
		s.metrics.issuances.WithLabelValues("init", "bad_request").Inc()
		s.writeTokenError(w, err)
		return
	}
	init, state, err := token.NewServerIssuance(s.source, s.key, clientPublic, s.pp)
	if err != nil {
		s.metrics.issuances.WithLabelValues("init", "bad_request").Inc()
		s.writeTokenError(w, err)
		return
	}
	data, err := init.MarshalBinary()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err)
		return
	}
	id, err := s.issuances.put(&pendingIssuance{state: state, clientPublic: clientPublic})
	if err != nil {
		s.metrics.issuances.WithLabelValues("init", "unavailable").Inc()
		s.writeError(w, http.StatusServiceUnavailable, codeUnavailable, err)
		return
	}
	s.metrics.issuances.WithLabelValues("init", "ok").Inc()
	writeJSON(w, http.StatusOK, &IssueInitResponse{Session: id, Init: data})
}

func (s *Server) handleIssueFinish(w http.ResponseWriter, r *http.Request) {
	var req IssueFinishRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	pending, ok := s.issuances.take(req.Session)
	if !ok {
		s.metrics.issuances.WithLabelValues("finish", "unknown_session").Inc()
		s.writeError(w, http.StatusNotFound, codeUnknownSession, errors.New("unknown or expired session"))
		return
	}
	sigmaC, err := token.DecodeScalar(s.pp.Group(), req.SigmaC)
	if err != nil {
		s.metrics.issuances.WithLabelValues("finish", "bad_request").Inc()
		s.writeTokenError(w, err)
		return
	}
	keyProof := zksch.EmptyProof(s.pp.Group())
	if err = cbor.Unmarshal(req.KeyProof, keyProof); err != nil {
		s.metrics.issuances.WithLabelValues("finish", "bad_request").Inc()
		s.writeTokenError(w, fmt.Errorf("key proof: %w: %v", token.ErrMalformedEncoding, err))
		return
	}
	if !keyProof.Verify(keyProofHash(s.pp, req.Session), s.pp.Gd, pending.clientPublic) {
		s.metrics.issuances.WithLabelValues("finish", "key_rejected").Inc()
		s.writeError(w, http.StatusForbidden, codeKeyRejected, errors.New("invalid proof of knowledge of the client key"))
		return
	}
	sigmaR, err := pending.state.Issue(sigmaC)
	if err != nil {
		s.metrics.issuances.WithLabelValues("finish", "bad_request").Inc()
		s.writeTokenError(w, err)
		return
	}
	data, err := token.EncodeScalar(sigmaR)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err)
		return
	}
	s.metrics.issuances.WithLabelValues("finish", "ok").Inc()
	s.log.Info().Str("session", req.Session).Msg("token issued")
	writeJSON(w, http.StatusOK, &IssueFinishResponse{SigmaR: data})
}

func (s *Server) handleRedeemCommit(w http.ResponseWriter, r *http.Request) {
	var req RedeemCommitRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	proof := token.EmptyRedemptionProof1(s.pp.Group())
	if err := proof.UnmarshalBinary(req.Proof); err != nil {
		s.metrics.redemptions.WithLabelValues("commit", "bad_request").Inc()
		s.writeTokenError(w, err)
		return
	}
	a, state, err := token.NewServerRedemption(s.source, s.pp, s.key.Public, proof)
	if err != nil {
		if errors.Is(err, token.ErrTokenInvalid) {
			s.metrics.redemptions.WithLabelValues("commit", "token_invalid").Inc()
			s.log.Warn().Err(err).Msg("invalid token presented")
		} else {
			s.metrics.redemptions.WithLabelValues("commit", "bad_request").Inc()
		}
		s.writeTokenError(w, err)
		return
	}
	data, err := token.EncodeScalar(a)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternal, err)
		return
	}
	id, err := s.redemptions.put(state)
	if err != nil {
		s.metrics.redemptions.WithLabelValues("commit", "unavailable").Inc()
		s.writeError(w, http.StatusServiceUnavailable, codeUnavailable, err)
		return
	}
	s.metrics.redemptions.WithLabelValues("commit", "ok").Inc()
	writeJSON(w, http.StatusOK, &RedeemCommitResponse{Session: id, Challenge: data})
}

func (s *Server) handleRedeemRespond(w http.ResponseWriter, r *http.Request) {
	var req RedeemRespondRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	state, ok := s.redemptions.take(req.Session)
	if !ok {
		s.metrics.redemptions.WithLabelValues("respond", "unknown_session").Inc()
		s.writeError(w, http.StatusNotFound, codeUnknownSession, errors.New("unknown or expired session"))
		return
	}
	proof := token.EmptyRedemptionProof2(s.pp.Group())
	if err := proof.UnmarshalBinary(req.Proof); err != nil {
		s.metrics.redemptions.WithLabelValues("respond", "bad_request").Inc()
		s.writeTokenError(w, err)
		return
	}
	if !state.Verify(proof) {
		s.metrics.redemptions.WithLabelValues("respond", "rejected").Inc()
		s.log.Warn().Str("session", req.Session).Msg("redemption proof rejected")
		s.writeTokenError(w, token.ErrProofRejected)
		return
	}
	s.metrics.redemptions.WithLabelValues("respond", "accepted").Inc()
	s.log.Info().Str("session", req.Session).Msg("token redeemed")
	writeJSON(w, http.StatusOK, &RedeemRespondResponse{Accepted: true})
}

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Errorf("failed to parse request: %w", err))
		return false
	}
	return true
}

// writeTokenError maps the errors of package token to a status and code.
func (s *Server) writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, token.ErrMalformedEncoding):
		s.writeError(w, http.StatusBadRequest, codeMalformed, err)
	case errors.Is(err, token.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, codeInvalidInput, err)
	case errors.Is(err, token.ErrTokenInvalid):
		s.writeError(w, http.StatusForbidden, codeTokenInvalid, err)
	case errors.Is(err, token.ErrProofRejected):
		s.writeError(w, http.StatusForbidden, codeProofRejected, err)
	default:
		s.writeError(w, http.StatusInternalServerError, codeInternal, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("code", code).Msg("request failed")
	}
	writeJSON(w, status, &ErrorResponse{Code: code, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
