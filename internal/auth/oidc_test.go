package auth

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgate/rpgate/internal/auth/authtest"
)

const testRedirectURL = "http://rp.example.com/callback"

func newTestProvider(t *testing.T, idp *authtest.IdP) *OIDCProvider {
	t.Helper()

	p, err := NewOIDCProvider(context.Background(), &OIDCConfig{
		Authority:    idp.Issuer(),
		ClientID:     authtest.ClientID,
		ClientSecret: authtest.ClientSecret,
		RedirectURL:  testRedirectURL,
		Scopes:       []string{"openid", "profile", "email"},
		HTTPTimeout:  5 * time.Second,
	})
	require.NoError(t, err)

	return p
}

// signIn runs a challenge against the fake provider and returns the callback parameters.
func signIn(t *testing.T, p *OIDCProvider, idp *authtest.IdP) (CallbackParams, RequestContext) {
	t.Helper()

	rc, err := NewRequestContext(testRedirectURL, "/", 5*time.Minute, time.Now())
	require.NoError(t, err)

	authURL, err := p.AuthorizationURL(rc)
	require.NoError(t, err)

	callback, err := idp.Authorize(authURL)
	require.NoError(t, err)

	q := callback.Query()

	return CallbackParams{Code: q.Get("code"), State: q.Get("state")}, rc
}

func TestNewOIDCProviderDiscoveryFailure(t *testing.T) {
	_, err := NewOIDCProvider(context.Background(), &OIDCConfig{
		Authority:   "http://127.0.0.1:1",
		ClientID:    "rp",
		HTTPTimeout: time.Second,
	})
	require.ErrorIs(t, err, ErrDiscovery)
}

func TestAuthorizationURL(t *testing.T) {
	idp := authtest.New(t)
	p := newTestProvider(t, idp)

	rc, err := NewRequestContext(testRedirectURL, "/", time.Minute, time.Now())
	require.NoError(t, err)

	raw, err := p.AuthorizationURL(rc)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, rc.State, q.Get("state"))
	assert.Equal(t, rc.Nonce, q.Get("nonce"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEqual(t, rc.PKCEVerifier, q.Get("code_challenge"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
	assert.Equal(t, testRedirectURL, q.Get("redirect_uri"))

	_, err = p.AuthorizationURL(RequestContext{})
	require.Error(t, err)
}

func TestValidateAndExchange(t *testing.T) {
	idp := authtest.New(t)
	p := newTestProvider(t, idp)

	params, rc := signIn(t, p, idp)

	identity, err := p.ValidateAndExchange(context.Background(), params, rc)
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", identity.Subject)
	assert.Equal(t, "user@example.com", identity.Email)
	assert.True(t, identity.EmailVerified)
	assert.Equal(t, "Example User", identity.Name)
	assert.Equal(t, idp.Issuer(), identity.Issuer)

	// a code is single use
	_, err = p.ValidateAndExchange(context.Background(), params, rc)
	require.ErrorIs(t, err, ErrProviderError)
}

func TestValidateAndExchangeFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(idp *authtest.IdP)
		mutate  func(params *CallbackParams, rc *RequestContext)
		wantErr error
		reason  string
	}{
		{
			name:    "bad signature",
			setup:   func(idp *authtest.IdP) { idp.BadSignature = true },
			wantErr: ErrTokenInvalid,
			reason:  ReasonTokenInvalid,
		},
		{
			name:    "expired token",
			setup:   func(idp *authtest.IdP) { idp.Expired = true },
			wantErr: ErrTokenExpired,
			reason:  ReasonTokenExpired,
		},
		{
			name:    "token endpoint rejects",
			setup:   func(idp *authtest.IdP) { idp.FailToken = true },
			wantErr: ErrProviderError,
			reason:  ReasonProviderError,
		},
		{
			name:    "nonce mismatch",
			setup:   func(idp *authtest.IdP) { idp.WrongNonce = true },
			wantErr: ErrNonceMismatch,
			reason:  ReasonNonce,
		},
		{
			name:    "wrong pkce verifier",
			mutate:  func(_ *CallbackParams, rc *RequestContext) { rc.PKCEVerifier = "x" + rc.PKCEVerifier },
			wantErr: ErrProviderError,
			reason:  ReasonProviderError,
		},
		{
			name:    "provider error response",
			mutate:  func(params *CallbackParams, _ *RequestContext) { params.Error = "access_denied" },
			wantErr: ErrProviderError,
			reason:  ReasonProviderError,
		},
		{
			name:    "missing code",
			mutate:  func(params *CallbackParams, _ *RequestContext) { params.Code = "" },
			wantErr: ErrMissingCode,
			reason:  ReasonMissingCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idp := authtest.New(t)
			p := newTestProvider(t, idp)

			if tt.setup != nil {
				tt.setup(idp)
			}

			params, rc := signIn(t, p, idp)
			if tt.mutate != nil {
				tt.mutate(&params, &rc)
			}

			_, err := p.ValidateAndExchange(context.Background(), params, rc)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.reason, Classify(err, true).Reason)
		})
	}
}

func TestValidateAndExchangeTransportFailure(t *testing.T) {
	idp := authtest.New(t)
	p := newTestProvider(t, idp)

	params, rc := signIn(t, p, idp)
	idp.Server.Close()

	_, err := p.ValidateAndExchange(context.Background(), params, rc)
	require.ErrorIs(t, err, ErrTransport)
}

func TestValidateAndExchangeIssuedInTheFuture(t *testing.T) {
	idp := authtest.New(t)
	p := newTestProvider(t, idp)
	p.SetClock(func() time.Time { return time.Now().Add(-10 * time.Minute) })

	params, rc := signIn(t, p, idp)

	_, err := p.ValidateAndExchange(context.Background(), params, rc)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestEndSessionEndpoint(t *testing.T) {
	idp := authtest.New(t)

	p := newTestProvider(t, idp)
	endpoint, ok := p.EndSessionEndpoint()
	assert.True(t, ok)
	assert.Equal(t, idp.EndSessionEndpoint(), endpoint)

	override, err := NewOIDCProvider(context.Background(), &OIDCConfig{
		Authority:          idp.Issuer(),
		ClientID:           authtest.ClientID,
		HTTPTimeout:        time.Second,
		EndSessionEndpoint: "https://idp.example.com/signout",
	})
	require.NoError(t, err)

	endpoint, ok = override.EndSessionEndpoint()
	assert.True(t, ok)
	assert.Equal(t, "https://idp.example.com/signout", endpoint)
}
