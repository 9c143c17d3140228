package service

// Binary fields hold the fixed width encodings of package token, and are base64 encoded in JSON.

// ParamsResponse is returned by GET /params.
type ParamsResponse struct {
	Group        string `json:"group"`
	Params       []byte `json:"params"`
	ServerPublic []byte `json:"server_public"`
}

// IssueInitRequest is the body of POST /issue/init.
type IssueInitRequest struct {
	ClientPublic []byte `json:"client_public"`
}

// IssueInitResponse carries the issuer's InitMessage.
type IssueInitResponse struct {
	Session string `json:"session"`
	Init    []byte `json:"init"`
}

// IssueFinishRequest is the body of POST /issue/finish.
//
// KeyProof is the cbor encoding of a Schnorr proof of knowledge of the client secret,
// bound to the session.
type IssueFinishRequest struct {
	Session  string `json:"session"`
	SigmaC   []byte `json:"sigma_c"`
	KeyProof []byte `json:"key_proof"`
}

// IssueFinishResponse carries the issuer's response.
type IssueFinishResponse struct {
	SigmaR []byte `json:"sigma_r"`
}

// RedeemCommitRequest is the body of POST /redeem/commit.
type RedeemCommitRequest struct {
	Proof []byte `json:"proof"`
}

// RedeemCommitResponse carries the server's freshness challenge.
type RedeemCommitResponse struct {
	Session   string `json:"session"`
	Challenge []byte `json:"challenge"`
}

// RedeemRespondRequest is the body of POST /redeem/respond.
type RedeemRespondRequest struct {
	Session string `json:"session"`
	Proof   []byte `json:"proof"`
}

// RedeemRespondResponse reports an accepted presentation.
type RedeemRespondResponse struct {
	Accepted bool `json:"accepted"`
}

// ErrorResponse is returned with every non 2xx status.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

const (
	codeBadRequest     = "bad_request"
	codeMalformed      = "malformed_encoding"
	codeInvalidInput   = "invalid_input"
	codeUnknownSession = "unknown_session"
	codeTokenInvalid   = "token_invalid"
	codeProofRejected  = "proof_rejected"
	codeKeyRejected    = "key_proof_rejected"
	codeUnavailable    = "unavailable"
	codeInternal       = "internal"
)
