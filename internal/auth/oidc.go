package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// clockSkew is tolerated between the identity provider and this host.
const clockSkew = time.Minute

// OIDCConfig holds OpenID Connect (OIDC) configuration for authentication.
type OIDCConfig struct {
	// Authority is the issuer url of the provider (e.g., "https://login.example.com/realms/main").
	Authority string
	// ClientID is the OAuth2 client identifier.
	ClientID string
	// ClientSecret is the OAuth2 client secret.
	ClientSecret string
	// RedirectURL is the OAuth2 callback URL where the provider redirects after authentication.
	RedirectURL string
	// Scopes are the OAuth2 scopes to request, openid is always added.
	Scopes []string
	// HTTPTimeout bounds every call to the provider.
	HTTPTimeout time.Duration
	// EndSessionEndpoint overrides the end_session_endpoint of the discovery document.
	EndSessionEndpoint string
}

// OIDCProvider implements Client on top of go-oidc and x/oauth2.
type OIDCProvider struct {
	config     *OIDCConfig
	provider   *oidc.Provider
	verifier   *oidc.IDTokenVerifier
	oauth2     oauth2.Config
	httpClient *http.Client
	endSession string
	now        func() time.Time
}

var _ Client = (*OIDCProvider)(nil)

// NewOIDCProvider runs the discovery against config.Authority and creates the client.
// A provider that can not be discovered is an ErrDiscovery.
func NewOIDCProvider(ctx context.Context, config *OIDCConfig) (*OIDCProvider, error) {
	httpClient := &http.Client{Timeout: config.HTTPTimeout}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), config.Authority)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	p := &OIDCProvider{
		config:     config,
		provider:   provider,
		httpClient: httpClient,
		now:        time.Now,
		oauth2: oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
	}

	p.verifier = provider.Verifier(&oidc.Config{
		ClientID: config.ClientID,
		Now:      func() time.Time { return p.now() },
	})

	p.endSession = config.EndSessionEndpoint
	if p.endSession == "" {
		var claims struct {
			EndSessionEndpoint string `json:"end_session_endpoint"`
		}

		if err = provider.Claims(&claims); err == nil {
			p.endSession = claims.EndSessionEndpoint
		}
	}

	return p, nil
}

// SetClock replaces the clock used to validate token lifetimes.
func (p *OIDCProvider) SetClock(now func() time.Time) {
	p.now = now
}

// AuthorizationURL returns the authorization request for rc: state, nonce and
// the PKCE S256 challenge of rc.PKCEVerifier.
func (p *OIDCProvider) AuthorizationURL(rc RequestContext) (string, error) {
	if rc.State == "" || rc.Nonce == "" {
		return "", fmt.Errorf("%w: state and nonce are required", ErrCorrelationMismatch)
	}

	opts := []oauth2.AuthCodeOption{oidc.Nonce(rc.Nonce)}

	if rc.PKCEVerifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(rc.PKCEVerifier))
	}

	if rc.RedirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", rc.RedirectURI))
	}

	return p.oauth2.AuthCodeURL(rc.State, opts...), nil
}

// ValidateAndExchange exchanges the authorization code of params and validates
// the returned ID token: signature, issuer, audience, lifetime and the nonce of rc.
func (p *OIDCProvider) ValidateAndExchange(ctx context.Context, params CallbackParams, rc RequestContext) (Identity, error) {
	if params.Error != "" {
		return Identity{}, fmt.Errorf("%w: %s: %s", ErrProviderError, params.Error, params.ErrorDescription)
	}

	if params.Code == "" {
		return Identity{}, ErrMissingCode
	}

	ctx = oidc.ClientContext(ctx, p.httpClient)

	opts := []oauth2.AuthCodeOption{}
	if rc.PKCEVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(rc.PKCEVerifier))
	}

	if rc.RedirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", rc.RedirectURI))
	}

	token, err := p.oauth2.Exchange(ctx, params.Code, opts...)
	if err != nil {
		return Identity{}, exchangeError(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return Identity{}, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Identity{}, verifyError(err)
	}

	if idToken.IssuedAt.After(p.now().Add(clockSkew)) {
		return Identity{}, fmt.Errorf("%w: issued at %s", ErrTokenExpired, idToken.IssuedAt.Format(time.RFC3339))
	}

	if subtle.ConstantTimeCompare([]byte(idToken.Nonce), []byte(rc.Nonce)) != 1 {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, ErrNonceMismatch)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}

	if err = idToken.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("%w: failed to parse claims: %w", ErrTokenInvalid, err)
	}

	return Identity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Issuer:        idToken.Issuer,
	}, nil
}

// EndSessionEndpoint returns the configured or discovered end_session_endpoint.
func (p *OIDCProvider) EndSessionEndpoint() (string, bool) {
	return p.endSession, p.endSession != ""
}

func exchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: token endpoint: %w", ErrProviderError, err)
	}

	return fmt.Errorf("%w: token endpoint: %w", ErrTransport, err)
}

func verifyError(err error) error {
	var expired *oidc.TokenExpiredError
	if errors.As(err, &expired) {
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	}

	var (
		urlErr *url.Error
		netErr net.Error
	)

	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: fetching keys: %w", ErrTransport, err)
	}

	return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
}
