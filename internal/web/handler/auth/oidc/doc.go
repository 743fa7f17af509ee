// Package oidc implements the OpenID Connect sign in flow of the relying party.
//
// The flow per browser is Anonymous -> PendingChallenge -> Authenticated -> Anonymous.
// A failed callback goes from PendingChallenge back to Anonymous without a session.
//
//   - Challenge creates a RequestContext (state, nonce, PKCE verifier), stores it
//     under its state, binds the state to the browser with a correlation cookie and
//     redirects to the identity provider.
//   - Callback checks the correlation cookie against the state, consumes the
//     pending challenge, lets the client exchange the code and validate the ID
//     token and creates the session.
//   - Logout ends the local session and optionally the provider session.
//   - Error shows the last failure of the browser.
//
// Example usage:
//
//	svc := &oidc.Service{}
//	err := svc.Init(app, cfg, oidc.Deps{
//		Client:   provider,
//		Sessions: sessions,
//		Requests: requests,
//	})
package oidc
