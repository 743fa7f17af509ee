// Package auth contains the OpenID Connect building blocks of the relying party.
//
// # OIDC client adapter
//
// OIDCProvider wraps coreos/go-oidc and golang.org/x/oauth2. It builds the
// authorization request (state, nonce, PKCE S256 challenge), exchanges the
// authorization code and validates the returned ID token: signature, issuer,
// audience, expiry and nonce. Errors are wrapped with the sentinel errors of
// this package so callers can tell validation, expiry and transport failures
// apart.
//
// # Redirect sanitizer
//
// SanitizeRedirect rewrites every outbound redirect to the identity provider
// to https. TLS is usually terminated by a load balancer in front of the
// process, so the scheme computed locally is often http and the provider would
// reject the redirect_uri or the browser would drop the correlation cookie.
// SafeReturnPath only lets internal application paths through.
//
// # Failure classification
//
// Classify turns any error of the callback path into a FailureRecord with one
// of the kinds LocalError, RemoteFailure or CorrelationMismatch. The record
// decides what may be disclosed to the browser.
package auth
