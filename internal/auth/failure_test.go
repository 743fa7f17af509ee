package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   FailureKind
		reason string
	}{
		{"signature", fmt.Errorf("%w: bad signature", ErrTokenInvalid), RemoteFailure, ReasonTokenInvalid},
		{"expired", fmt.Errorf("%w: token is expired", ErrTokenExpired), RemoteFailure, ReasonTokenExpired},
		{"transport", fmt.Errorf("%w: dial tcp: refused", ErrTransport), RemoteFailure, ReasonTransport},
		{"no id token", ErrNoIDToken, RemoteFailure, ReasonNoIDToken},
		{"provider error", fmt.Errorf("%w: access_denied", ErrProviderError), RemoteFailure, ReasonProviderError},
		{"missing code", ErrMissingCode, RemoteFailure, ReasonMissingCode},
		{"correlation", ErrCorrelationMismatch, CorrelationMismatch, ReasonCorrelation},
		{"nonce", fmt.Errorf("%w: %w", ErrTokenInvalid, ErrNonceMismatch), CorrelationMismatch, ReasonNonce},
		{"unknown adapter panic", errors.New("boom"), RemoteFailure, ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Classify(tt.err, true)
			assert.Equal(t, tt.kind, rec.Kind)
			assert.Equal(t, tt.reason, rec.Reason)
			assert.ErrorIs(t, rec, tt.err)
		})
	}
}

func TestClassifyKeepsRecord(t *testing.T) {
	local := NewFailureRecord(LocalError, "session_store", errors.New("valkey down"), false)

	rec := Classify(fmt.Errorf("callback: %w", local), true)
	assert.Equal(t, LocalError, rec.Kind)
	assert.Equal(t, "session_store", rec.Reason)
}

func TestFailureMessageDisclosure(t *testing.T) {
	cause := fmt.Errorf("%w: square/go-jose: error in cryptographic primitive", ErrTokenInvalid)

	prod := Classify(cause, true)
	assert.False(t, prod.Disclose)
	assert.Equal(t, GenericFailureMessage, prod.Message())
	assert.NotContains(t, prod.Message(), "cryptographic primitive")

	dev := Classify(cause, false)
	assert.True(t, dev.Disclose)
	assert.Contains(t, dev.Message(), "cryptographic primitive")
}

func TestCorrelationMismatchNeverDisclosed(t *testing.T) {
	rec := Classify(fmt.Errorf("%w: state xyz999", ErrCorrelationMismatch), false)

	assert.False(t, rec.Disclose)
	assert.Equal(t, CorrelationFailureMessage, rec.Message())
	assert.NotContains(t, rec.Message(), "xyz999")
}

func TestFailureKindString(t *testing.T) {
	assert.Equal(t, "LocalError", LocalError.String())
	assert.Equal(t, "RemoteFailure", RemoteFailure.String())
	assert.Equal(t, "CorrelationMismatch", CorrelationMismatch.String())
	assert.Equal(t, "FailureKind(42)", FailureKind(42).String())
}
