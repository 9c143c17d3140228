package token

import "errors"

var (
	// ErrIssuanceVerification is returned by ClientIssuance.Finalize when the issuer's response does not
	// satisfy the signature equation. The issuance must be restarted from scratch.
	ErrIssuanceVerification = errors.New("token: issuance verification failed")
	// ErrTokenInvalid is returned when a presented token was not issued under the given server key.
	ErrTokenInvalid = errors.New("token: token is invalid")
	// ErrProofRejected is returned when the second redemption message does not satisfy the verification equation.
	ErrProofRejected = errors.New("token: redemption proof rejected")
	// ErrMalformedEncoding is returned when a byte string is not the canonical encoding of the expected value.
	ErrMalformedEncoding = errors.New("token: malformed encoding")
	// ErrSessionConsumed is returned when a protocol state is used after it has already produced its output.
	ErrSessionConsumed = errors.New("token: session state already consumed")
	// ErrInvalidInput is returned for missing values, identity points, or values from a different group.
	ErrInvalidInput = errors.New("token: invalid input")
	// ErrNotForked is returned by ExtractClientSecret when the presentations do not share their commitment.
	ErrNotForked = errors.New("token: presentations do not share a commitment")
)
