package auth

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a sign in attempt failed.
type FailureKind int

const (
	// LocalError is a failure inside this process, e.g. the session storage is unavailable.
	LocalError FailureKind = iota
	// RemoteFailure is a failure reported by, or while talking to, the identity provider.
	RemoteFailure
	// CorrelationMismatch is a callback that can not be matched to a pending challenge.
	CorrelationMismatch
)

const (
	// GenericFailureMessage is shown to the browser when failure details must not be disclosed.
	GenericFailureMessage = "An error occurred while signing you in. Please contact your administrator."

	// CorrelationFailureMessage is shown for callbacks that do not belong to a pending challenge.
	CorrelationFailureMessage = "The sign in request could not be verified. Please start the sign in again."
)

// Failure reasons reported with a RemoteFailure.
const (
	ReasonTokenInvalid  = "token_invalid"
	ReasonTokenExpired  = "token_expired"
	ReasonTransport     = "transport"
	ReasonNoIDToken     = "no_id_token"
	ReasonProviderError = "provider_error"
	ReasonMissingCode   = "missing_code"
	ReasonCorrelation   = "correlation"
	ReasonNonce         = "nonce"
	ReasonUnknown       = "unknown"
)

func (k FailureKind) String() string {
	switch k {
	case LocalError:
		return "LocalError"
	case RemoteFailure:
		return "RemoteFailure"
	case CorrelationMismatch:
		return "CorrelationMismatch"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// FailureRecord is a classified sign in failure. Cause is for the server log only,
// Message decides what the browser gets to see.
type FailureRecord struct {
	Kind     FailureKind
	Reason   string
	Cause    error
	Disclose bool
}

// NewFailureRecord creates a record of kind. Details are disclosed outside production,
// never for a CorrelationMismatch.
func NewFailureRecord(kind FailureKind, reason string, cause error, production bool) FailureRecord {
	return FailureRecord{
		Kind:     kind,
		Reason:   reason,
		Cause:    cause,
		Disclose: !production && kind != CorrelationMismatch && cause != nil,
	}
}

// Message is the text that may be shown to the browser.
func (f FailureRecord) Message() string {
	if f.Kind == CorrelationMismatch {
		return CorrelationFailureMessage
	}

	if f.Disclose && f.Cause != nil {
		return f.Cause.Error()
	}

	return GenericFailureMessage
}

// Error implements error.
func (f FailureRecord) Error() string {
	if f.Cause == nil {
		return fmt.Sprintf("%s (%s)", f.Kind, f.Reason)
	}

	return fmt.Sprintf("%s (%s): %v", f.Kind, f.Reason, f.Cause)
}

// Unwrap returns the cause.
func (f FailureRecord) Unwrap() error {
	return f.Cause
}

var remoteReasons = []struct {
	err    error
	reason string
}{
	{ErrTokenExpired, ReasonTokenExpired},
	{ErrTokenInvalid, ReasonTokenInvalid},
	{ErrTransport, ReasonTransport},
	{ErrNoIDToken, ReasonNoIDToken},
	{ErrProviderError, ReasonProviderError},
	{ErrMissingCode, ReasonMissingCode},
}

// Classify turns an error of the callback path into a FailureRecord.
// Correlation and nonce mismatches become CorrelationMismatch, everything else
// that came back from the client adapter is a RemoteFailure.
func Classify(err error, production bool) FailureRecord {
	var record FailureRecord
	if errors.As(err, &record) {
		return record
	}

	switch {
	case errors.Is(err, ErrCorrelationMismatch):
		return NewFailureRecord(CorrelationMismatch, ReasonCorrelation, err, production)
	case errors.Is(err, ErrNonceMismatch):
		return NewFailureRecord(CorrelationMismatch, ReasonNonce, err, production)
	}

	for _, r := range remoteReasons {
		if errors.Is(err, r.err) {
			return NewFailureRecord(RemoteFailure, r.reason, err, production)
		}
	}

	return NewFailureRecord(RemoteFailure, ReasonUnknown, err, production)
}
