package fairsharing

import (
	"errors"
	"fmt"
)

// AuthReason classifies why a sign-in did not produce a token.
type AuthReason string

const (
	AuthReasonTransport    AuthReason = "transport"     // no response received
	AuthReasonStatus       AuthReason = "status"        // non-2xx without a usable body
	AuthReasonDecode       AuthReason = "decode"        // body is not the expected JSON
	AuthReasonRejected     AuthReason = "rejected"      // success was false
	AuthReasonMissingField AuthReason = "missing_field" // success or jwt absent
)

// AuthError is the failure side of a sign-in.
type AuthError struct {
	Reason     AuthReason
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fairsharing sign-in failed (%s)", e.Reason)
	}
	return fmt.Sprintf("fairsharing sign-in failed (%s): %v", e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ErrMissingData is returned when a record response has no "data" array.
var ErrMissingData = errors.New(`response has no "data" array`)

// FetchError is the failure side of a record fetch. StatusCode and Body are
// set when the registry answered with a non-2xx status.
type FetchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fairsharing records fetch failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("fairsharing records fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
