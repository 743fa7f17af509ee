package auth

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/rpgate/rpgate/internal/uniuri"
)

// RequestContext is the per challenge state. It is created when the browser is
// sent to the identity provider and consumed exactly once by the callback.
type RequestContext struct {
	State        string    `json:"state"`
	Nonce        string    `json:"nonce"`
	PKCEVerifier string    `json:"pkce_verifier"`
	RedirectURI  string    `json:"redirect_uri"`
	ReturnPath   string    `json:"return_path"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewRequestContext creates a request context with fresh state, nonce and PKCE verifier.
func NewRequestContext(redirectURI, returnPath string, ttl time.Duration, now time.Time) (RequestContext, error) {
	state, err := uniuri.Token()
	if err != nil {
		return RequestContext{}, err
	}

	nonce, err := uniuri.Token()
	if err != nil {
		return RequestContext{}, err
	}

	return RequestContext{
		State:        state,
		Nonce:        nonce,
		PKCEVerifier: oauth2.GenerateVerifier(),
		RedirectURI:  redirectURI,
		ReturnPath:   returnPath,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}, nil
}

// Expired reports whether the challenge is older than its lifetime.
func (rc RequestContext) Expired(now time.Time) bool {
	return !now.Before(rc.ExpiresAt)
}

// CallbackParams are the query parameters the identity provider sends to the callback path.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Identity is the authenticated end user as asserted by a validated ID token.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Issuer        string
}

// Client is what the orchestrator needs from an OpenID Connect client.
type Client interface {
	// AuthorizationURL builds the authorization request for rc.
	AuthorizationURL(rc RequestContext) (string, error)
	// ValidateAndExchange exchanges the authorization code and validates the ID token against rc.
	ValidateAndExchange(ctx context.Context, params CallbackParams, rc RequestContext) (Identity, error)
	// EndSessionEndpoint returns the provider's end session endpoint if one is known.
	EndSessionEndpoint() (string, bool)
}
