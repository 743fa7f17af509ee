package auth

import "errors"

var (
	// ErrNoIDToken is returned when the token response doesn't contain an ID token.
	// This typically indicates a misconfigured provider or a missing openid scope.
	ErrNoIDToken = errors.New("no id_token in token response")

	// ErrMissingCode is returned when the callback carries neither a code nor an error.
	ErrMissingCode = errors.New("authorization code missing in callback")

	// ErrProviderError is returned when the identity provider answered with an OAuth2 error.
	ErrProviderError = errors.New("identity provider returned an error")

	// ErrTokenInvalid is returned when the ID token signature, issuer or audience does not validate.
	ErrTokenInvalid = errors.New("id token validation failed")

	// ErrTokenExpired is returned when the ID token is expired or not yet valid.
	ErrTokenExpired = errors.New("id token expired or not yet valid")

	// ErrTransport is returned when the identity provider could not be reached.
	ErrTransport = errors.New("identity provider transport failure")

	// ErrCorrelationMismatch is returned when the state of a callback does not match the
	// value bound to the browser, or no pending challenge exists for it.
	ErrCorrelationMismatch = errors.New("correlation value mismatch")

	// ErrNonceMismatch is returned when the nonce claim differs from the challenge nonce.
	ErrNonceMismatch = errors.New("nonce mismatch")

	// ErrInvalidRedirect is returned when a redirect target can not be parsed or is not absolute.
	ErrInvalidRedirect = errors.New("invalid redirect target")

	// ErrDiscovery is returned when the provider metadata can not be loaded at startup.
	ErrDiscovery = errors.New("oidc discovery failed")
)
