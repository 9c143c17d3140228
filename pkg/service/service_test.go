package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/math/sample"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
	zksch "github.com/taurusgroup/uprove-tokens/pkg/zk/sch"
)

type fixture struct {
	pp     *token.PublicParams
	key    *token.ServerKey
	server *Server
	http   *httptest.Server
}

func newFixture(t *testing.T, group curve.Curve, config Config) *fixture {
	pp := token.Setup(rand.Reader, group)
	key := token.NewServerKey(rand.Reader, pp)
	server, err := NewServer(pp, key, config, zerolog.Nop(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return &fixture{pp: pp, key: key, server: server, http: ts}
}

func (f *fixture) dial(t *testing.T) *Client {
	c, err := Dial(context.Background(), f.http.URL, f.http.Client(), nil)
	require.NoError(t, err)
	return c
}

func (f *fixture) post(t *testing.T, path string, body interface{}) (int, ErrorResponse) {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := f.http.Client().Post(f.http.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	var errResp ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	return resp.StatusCode, errResp
}

func TestIssueAndRedeem(t *testing.T) {
	for _, group := range []curve.Curve{curve.Ristretto255{}, curve.Secp256k1{}} {
		f := newFixture(t, group, Config{})
		c := f.dial(t)
		require.True(t, c.ServerPublic().Equal(f.key.Public))
		require.True(t, c.Params().Gxt.Equal(f.pp.Gxt))

		key := token.NewClientKey(rand.Reader, c.Params())
		pi := sample.Scalar(rand.Reader, group)
		tok, witness, err := c.Issue(context.Background(), key, pi)
		require.NoError(t, err)
		assert.True(t, tok.Pi.Equal(pi))
		assert.NoError(t, token.CheckToken(f.pp, f.key.Public, tok))

		for i := 0; i < 2; i++ {
			presentation, err := c.Redeem(context.Background(), key, tok, witness)
			require.NoError(t, err, "presentation %d", i)
			assert.True(t, presentation.Proof1.Token.Equal(tok))
		}
		assert.Zero(t, f.server.issuances.len())
		assert.Zero(t, f.server.redemptions.len())
	}
}

func TestRedeemRefused(t *testing.T) {
	f := newFixture(t, curve.Ristretto255{}, Config{})
	c := f.dial(t)
	key := token.NewClientKey(rand.Reader, c.Params())
	tok, witness, err := c.Issue(context.Background(), key, c.Params().Group().NewScalar())
	require.NoError(t, err)

	forged := *tok
	forged.SigmaR = sample.Scalar(rand.Reader, c.Params().Group())
	_, err = c.Redeem(context.Background(), key, &forged, witness)
	assert.ErrorIs(t, err, token.ErrTokenInvalid)

	other := token.NewClientKey(rand.Reader, c.Params())
	_, err = c.Redeem(context.Background(), other, tok, witness)
	assert.ErrorIs(t, err, token.ErrProofRejected)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.Status)
}

func TestIssueOtherServer(t *testing.T) {
	f := newFixture(t, curve.Secp256k1{}, Config{})
	c := f.dial(t)
	// a client expecting another issuer key rejects the response
	c.serverPublic = token.NewServerKey(rand.Reader, f.pp).Public
	key := token.NewClientKey(rand.Reader, c.Params())
	_, _, err := c.Issue(context.Background(), key, c.Params().Group().NewScalar())
	assert.ErrorIs(t, err, token.ErrIssuanceVerification)
}

// initIssue posts the first issuance request for public, and returns the session.
func (f *fixture) initIssue(t *testing.T, public curve.Point) string {
	data, err := token.EncodePoint(public)
	require.NoError(t, err)
	body, err := json.Marshal(&IssueInitRequest{ClientPublic: data})
	require.NoError(t, err)
	resp, err := f.http.Client().Post(f.http.URL+"/issue/init", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var initResp IssueInitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&initResp))
	return initResp.Session
}

func (f *fixture) keyProof(t *testing.T, key *token.ClientKey, session string) []byte {
	proof := zksch.NewProof(rand.Reader, keyProofHash(f.pp, session), f.pp.Gd, key.Public, key.Secret)
	data, err := cbor.Marshal(proof)
	require.NoError(t, err)
	return data
}

func TestSessionsAreSingleUse(t *testing.T) {
	f := newFixture(t, curve.Ristretto255{}, Config{})
	key := token.NewClientKey(rand.Reader, f.pp)
	session := f.initIssue(t, key.Public)

	sigmaC, err := token.EncodeScalar(sample.Scalar(rand.Reader, f.pp.Group()))
	require.NoError(t, err)
	req := &IssueFinishRequest{Session: session, SigmaC: sigmaC, KeyProof: f.keyProof(t, key, session)}
	status, _ := f.post(t, "/issue/finish", req)
	assert.Equal(t, http.StatusOK, status)
	status, errResp := f.post(t, "/issue/finish", req)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, codeUnknownSession, errResp.Code)
}

func TestIssueRequiresKeyProof(t *testing.T) {
	for _, group := range []curve.Curve{curve.Ristretto255{}, curve.Secp256k1{}} {
		f := newFixture(t, group, Config{})
		victim := token.NewClientKey(rand.Reader, f.pp)
		attacker := token.NewClientKey(rand.Reader, f.pp)
		sigmaC, err := token.EncodeScalar(sample.Scalar(rand.Reader, group))
		require.NoError(t, err)

		session := f.initIssue(t, victim.Public)
		status, errResp := f.post(t, "/issue/finish", &IssueFinishRequest{Session: session, SigmaC: sigmaC})
		assert.Equal(t, http.StatusBadRequest, status, group.Name())
		assert.Equal(t, codeMalformed, errResp.Code)

		// a proof for another key
		session = f.initIssue(t, victim.Public)
		status, errResp = f.post(t, "/issue/finish", &IssueFinishRequest{Session: session, SigmaC: sigmaC, KeyProof: f.keyProof(t, attacker, session)})
		assert.Equal(t, http.StatusForbidden, status, group.Name())
		assert.Equal(t, codeKeyRejected, errResp.Code)

		// a proof made for another session
		other := f.initIssue(t, victim.Public)
		session = f.initIssue(t, victim.Public)
		status, errResp = f.post(t, "/issue/finish", &IssueFinishRequest{Session: session, SigmaC: sigmaC, KeyProof: f.keyProof(t, victim, other)})
		assert.Equal(t, http.StatusForbidden, status, group.Name())
		assert.Equal(t, codeKeyRejected, errResp.Code)

		// the rejected session is consumed
		status, errResp = f.post(t, "/issue/finish", &IssueFinishRequest{Session: session, SigmaC: sigmaC, KeyProof: f.keyProof(t, victim, session)})
		assert.Equal(t, http.StatusNotFound, status, group.Name())
		assert.Equal(t, codeUnknownSession, errResp.Code)

		status, _ = f.post(t, "/issue/finish", &IssueFinishRequest{Session: other, SigmaC: sigmaC, KeyProof: f.keyProof(t, victim, other)})
		assert.Equal(t, http.StatusOK, status, group.Name())

		assert.ErrorIs(t, &StatusError{Status: http.StatusForbidden, Code: codeKeyRejected}, token.ErrInvalidInput)
	}
}

func TestMalformedRequests(t *testing.T) {
	f := newFixture(t, curve.Ristretto255{}, Config{})

	status, errResp := f.post(t, "/issue/init", &IssueInitRequest{ClientPublic: []byte{1, 2, 3}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, codeMalformed, errResp.Code)

	status, errResp = f.post(t, "/issue/init", &IssueInitRequest{ClientPublic: make([]byte, 32)})
	assert.Equal(t, http.StatusBadRequest, status, "identity point")
	assert.Equal(t, codeInvalidInput, errResp.Code)

	status, errResp = f.post(t, "/redeem/commit", &RedeemCommitRequest{Proof: make([]byte, 10)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, codeMalformed, errResp.Code)

	resp, err := f.http.Client().Post(f.http.URL+"/redeem/respond", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, curve.Ristretto255{}, Config{})
	c := f.dial(t)
	key := token.NewClientKey(rand.Reader, c.Params())
	tok, witness, err := c.Issue(context.Background(), key, c.Params().Group().NewScalar())
	require.NoError(t, err)
	_, err = c.Redeem(context.Background(), key, tok, witness)
	require.NoError(t, err)

	resp, err := f.http.Client().Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `uprove_issuances_total{outcome="ok",step="finish"} 1`)
	assert.Contains(t, string(body), `uprove_redemptions_total{outcome="accepted",step="respond"} 1`)
	assert.Contains(t, string(body), "uprove_pending_sessions 0")
}

func TestStoreExpiry(t *testing.T) {
	s := newStore[int](time.Minute, 2, rand.Reader)
	now := time.Now()
	s.now = func() time.Time { return now }

	id1, err := s.put(1)
	require.NoError(t, err)
	_, err = s.put(2)
	require.NoError(t, err)
	_, err = s.put(3)
	assert.ErrorIs(t, err, errStoreFull)

	v, ok := s.take(id1)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = s.take(id1)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	_, err = s.put(4)
	require.NoError(t, err, "expired entries are dropped")
	assert.Equal(t, 1, s.len())
}
