package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/uprove-tokens/pkg/math/curve"
	"github.com/taurusgroup/uprove-tokens/pkg/token"
	zksch "github.com/taurusgroup/uprove-tokens/pkg/zk/sch"
)

// Client runs the client side of both protocols against a Server.
type Client struct {
	baseURL      string
	http         *http.Client
	source       io.Reader
	pp           *token.PublicParams
	serverPublic curve.Point
}

// Dial fetches the parameters and public key of the server at baseURL.
//
// A nil httpClient defaults to http.DefaultClient, and a nil source to crypto/rand.
func Dial(ctx context.Context, baseURL string, httpClient *http.Client, source io.Reader) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if source == nil {
		source = rand.Reader
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		source:  source,
	}

	var resp ParamsResponse
	if err := c.do(ctx, http.MethodGet, "/params", nil, &resp); err != nil {
		return nil, fmt.Errorf("service.Dial: %w", err)
	}
	group, err := curve.FromName(resp.Group)
	if err != nil {
		return nil, fmt.Errorf("service.Dial: %w", err)
	}
	pp := token.EmptyPublicParams(group)
	if err = pp.UnmarshalBinary(resp.Params); err != nil {
		return nil, fmt.Errorf("service.Dial: %w", err)
	}
	if err = pp.Validate(); err != nil {
		return nil, fmt.Errorf("service.Dial: %w", err)
	}
	serverPublic, err := token.DecodePoint(group, resp.ServerPublic)
	if err != nil {
		return nil, fmt.Errorf("service.Dial: %w", err)
	}
	c.pp, c.serverPublic = pp, serverPublic
	return c, nil
}

// Params returns the public parameters of the server.
func (c *Client) Params() *token.PublicParams { return c.pp }

// ServerPublic returns the public key the server issues tokens under.
func (c *Client) ServerPublic() curve.Point { return c.serverPublic }

// Issue obtains a token carrying the attribute pi for key.
func (c *Client) Issue(ctx context.Context, key *token.ClientKey, pi curve.Scalar) (*token.Token, *token.Witness, error) {
	public, err := token.EncodePoint(key.Public)
	if err != nil {
		return nil, nil, fmt.Errorf("service.Client.Issue: %w", err)
	}
	var initResp IssueInitResponse
	if err = c.do(ctx, http.MethodPost, "/issue/init", &IssueInitRequest{ClientPublic: public}, &initResp); err != nil {
		return nil, nil, fmt.Errorf("service.Client.Issue: %w", err)
	}
	init := token.EmptyInitMessage(c.pp.Group())
	if err = init.UnmarshalBinary(initResp.Init); err != nil {
		return nil, nil, fmt.Errorf("service.Client.Issue: %w", err)
	}

	sigmaC, state, err := token.NewClientIssuance(c.source, key, pi, c.pp, c.serverPublic, init)
	if err != nil {
		return nil, nil, fmt.Errorf("service.Client.Issue: %w", err)
	}
	sigmaCData, err := token.EncodeScalar(sigmaC)
	if err != nil {
		return nil, nil, fmt.Errorf("service.Client.Issue: %w", err)
	}
	keyProof := zksch.NewProof(c.source, keyProofHash(c.pp, initResp.Session), c.pp.Gd, key.Public, key.Secret)
	keyProofData, err := cbor.Marshal(keyProof)
	if err != nil {
		return nil, nil, fmt.Errorf("service.Client.Issue: %w", err)
	}
	var finishResp IssueFinishResponse
	req := &IssueFinishRequest{Session: initResp.Session, SigmaC: sigmaCData, KeyProof: keyProofData}
	if err = c.do(ctx, http.MethodPost, "/issue/finish", req, &finishResp); err != nil {
		return nil, nil, fmt.Errorf("service.Client.Issue: %w", err)
	}
	sigmaR, err := token.DecodeScalar(c.pp.Group(), finishResp.SigmaR)
	if err != nil {
		return nil, nil, fmt.Errorf("service.Client.Issue: %w", err)
	}
	t, witness, err := state.Finalize(sigmaR)
	if err != nil {
		return nil, nil, fmt.Errorf("service.Client.Issue: %w", err)
	}
	return t, witness, nil
}

// Redeem presents t to the server.
//
// A refusal is reported with an error wrapping token.ErrTokenInvalid or token.ErrProofRejected.
func (c *Client) Redeem(ctx context.Context, key *token.ClientKey, t *token.Token, witness *token.Witness) (*token.Presentation, error) {
	proof1, state, err := token.NewClientRedemption(c.source, c.pp, t, key, witness)
	if err != nil {
		return nil, fmt.Errorf("service.Client.Redeem: %w", err)
	}
	proof1Data, err := proof1.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("service.Client.Redeem: %w", err)
	}
	var commitResp RedeemCommitResponse
	if err = c.do(ctx, http.MethodPost, "/redeem/commit", &RedeemCommitRequest{Proof: proof1Data}, &commitResp); err != nil {
		return nil, fmt.Errorf("service.Client.Redeem: %w", err)
	}
	a, err := token.DecodeScalar(c.pp.Group(), commitResp.Challenge)
	if err != nil {
		return nil, fmt.Errorf("service.Client.Redeem: %w", err)
	}

	proof2, err := state.Respond(a)
	if err != nil {
		return nil, fmt.Errorf("service.Client.Redeem: %w", err)
	}
	proof2Data, err := proof2.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("service.Client.Redeem: %w", err)
	}
	var respondResp RedeemRespondResponse
	if err = c.do(ctx, http.MethodPost, "/redeem/respond", &RedeemRespondRequest{Session: commitResp.Session, Proof: proof2Data}, &respondResp); err != nil {
		return nil, fmt.Errorf("service.Client.Redeem: %w", err)
	}
	if !respondResp.Accepted {
		return nil, fmt.Errorf("service.Client.Redeem: %w", token.ErrProofRejected)
	}
	return &token.Presentation{Proof1: proof1, Challenge: a, Proof2: proof2}, nil
}

// StatusError is returned for responses with a non 2xx status.
type StatusError struct {
	Status int
	Code   string
	Msg    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service: status %d (%s): %s", e.Status, e.Code, e.Msg)
}

// Unwrap maps the codes of refused presentations back to the errors of package token.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case codeTokenInvalid:
		return token.ErrTokenInvalid
	case codeProofRejected:
		return token.ErrProofRejected
	case codeMalformed:
		return token.ErrMalformedEncoding
	case codeInvalidInput, codeKeyRejected:
		return token.ErrInvalidInput
	default:
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&errResp)
		return &StatusError{Status: resp.StatusCode, Code: errResp.Code, Msg: errResp.Error}
	}
	return json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out)
}
