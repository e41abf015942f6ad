// middleware/auth/failure.go
package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind is the machine-readable reason a request was rejected.
// The values are wire-stable; they appear in rejection bodies and metrics.
type FailureKind string

const (
	FailureMissingCredentials FailureKind = "missing_credentials"
	FailureMalformedToken     FailureKind = "malformed_token"
	FailureUnknownKey         FailureKind = "unknown_key"
	FailureKeySetUnavailable  FailureKind = "keyset_unavailable"
	FailureBadSignature       FailureKind = "bad_signature"
	FailureExpired            FailureKind = "expired"
	FailureNotYetValid        FailureKind = "not_yet_valid"
	FailureWrongIssuer        FailureKind = "wrong_issuer"
	FailureWrongAudience      FailureKind = "wrong_audience"

	// FailureMissingRole is produced by route guards, not by the decoder.
	FailureMissingRole FailureKind = "missing_role"
)

// HTTPStatus maps a failure to its response code. Only the role guard
// distinguishes an authenticated-but-unauthorized caller.
func (k FailureKind) HTTPStatus() int {
	if k == FailureMissingRole {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

// RejectionError carries a FailureKind through the decode pipeline.
type RejectionError struct {
	Kind FailureKind
	Err  error
}

func (e *RejectionError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

func reject(kind FailureKind, err error) error {
	return &RejectionError{Kind: kind, Err: err}
}

// KindOf extracts the failure kind from an error returned by Decode.
func KindOf(err error) (FailureKind, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}

// Sentinel lookup results from the key-set cache.
var (
	ErrUnknownKey        = errors.New("signing key not present in key set")
	ErrKeySetUnavailable = errors.New("key set has never been fetched")
)

// FetchError reports a failed JWKS fetch. It is recovered locally by
// retaining the previous snapshot and never surfaces as a request failure.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("jwks fetch %s: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }
