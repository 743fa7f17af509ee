// Package authtest provides an in process OpenID Connect identity provider for tests.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/rpgate/rpgate/internal/uniuri"
)

const (
	// ClientID is the client registered at the fake provider.
	ClientID = "rpgate"
	// ClientSecret is the secret of ClientID.
	ClientSecret = "rpgate-secret"

	keyID = "test"
)

var (
	errUnknownClient = errors.New("unknown client_id")
	errNoChallenge   = errors.New("code_challenge with method S256 required")
)

// User is the identity the provider signs in.
type User struct {
	Subject string
	Email   string
	Name    string
}

// IdP is a minimal OpenID Connect provider: discovery, JWKS, authorization
// code grant with PKCE. The flags change what the token endpoint returns.
type IdP struct {
	Server *httptest.Server
	User   User

	// FailToken makes the token endpoint answer invalid_grant.
	FailToken bool
	// Expired issues ID tokens that expired an hour ago.
	Expired bool
	// BadSignature signs ID tokens with a key that is not published.
	BadSignature bool
	// WrongNonce puts a different nonce into the ID token.
	WrongNonce bool

	key      *rsa.PrivateKey
	rogueKey *rsa.PrivateKey

	mu     sync.Mutex
	grants map[string]grant
}

type grant struct {
	nonce       string
	challenge   string
	redirectURI string
}

// New starts the provider, it is closed when t finishes.
func New(t testing.TB) *IdP {
	t.Helper()

	p := &IdP{
		User:   User{Subject: "user@example.com", Email: "user@example.com", Name: "Example User"},
		grants: map[string]grant{},
	}

	var err error
	if p.key, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
		t.Fatalf("generate key: %v", err)
	}

	if p.rogueKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
		t.Fatalf("generate key: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", p.discovery)
	mux.HandleFunc("GET /keys", p.keys)
	mux.HandleFunc("POST /token", p.token)

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)

	return p
}

// Issuer is the authority url of the provider.
func (p *IdP) Issuer() string {
	return p.Server.URL
}

// EndSessionEndpoint is the end_session_endpoint published by discovery.
func (p *IdP) EndSessionEndpoint() string {
	return p.Server.URL + "/logout"
}

// Authorize plays the browser at the authorization endpoint: it accepts the
// authorization request and returns the callback url the provider redirects to.
func (p *IdP) Authorize(authURL string) (*url.URL, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return nil, err
	}

	q := u.Query()

	if q.Get("client_id") != ClientID {
		return nil, errUnknownClient
	}

	if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
		return nil, errNoChallenge
	}

	redirectURI, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || redirectURI.Host == "" {
		return nil, fmt.Errorf("invalid redirect_uri %q", q.Get("redirect_uri"))
	}

	code, err := uniuri.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.grants[code] = grant{
		nonce:       q.Get("nonce"),
		challenge:   q.Get("code_challenge"),
		redirectURI: q.Get("redirect_uri"),
	}
	p.mu.Unlock()

	rq := redirectURI.Query()
	rq.Set("code", code)
	rq.Set("state", q.Get("state"))
	redirectURI.RawQuery = rq.Encode()

	return redirectURI, nil
}

func (p *IdP) discovery(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                p.Issuer(),
		"authorization_endpoint":                p.Issuer() + "/authorize",
		"token_endpoint":                        p.Issuer() + "/token",
		"jwks_uri":                              p.Issuer() + "/keys",
		"end_session_endpoint":                  p.EndSessionEndpoint(),
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"code_challenge_methods_supported":      []string{"S256"},
	})
}

func (p *IdP) keys(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &p.key.PublicKey,
		KeyID:     keyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
}

func (p *IdP) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		tokenError(w, "invalid_request")
		return
	}

	clientID, clientSecret, ok := r.BasicAuth()
	if ok {
		clientID, _ = url.QueryUnescape(clientID)
		clientSecret, _ = url.QueryUnescape(clientSecret)
	} else {
		clientID, clientSecret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}

	if clientID != ClientID || clientSecret != ClientSecret {
		w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})

		return
	}

	code := r.PostForm.Get("code")

	p.mu.Lock()
	g, found := p.grants[code]
	delete(p.grants, code)
	p.mu.Unlock()

	if p.FailToken || !found || r.PostForm.Get("grant_type") != "authorization_code" {
		tokenError(w, "invalid_grant")
		return
	}

	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != g.challenge {
		tokenError(w, "invalid_grant")
		return
	}

	if r.PostForm.Get("redirect_uri") != g.redirectURI {
		tokenError(w, "invalid_grant")
		return
	}

	idToken, err := p.mintIDToken(g.nonce)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": "access-" + code,
		"token_type":   "Bearer",
		"expires_in":   300,
		"id_token":     idToken,
	})
}

func (p *IdP) mintIDToken(nonce string) (string, error) {
	now := time.Now()
	if p.Expired {
		now = now.Add(-2 * time.Hour)
	}

	if p.WrongNonce {
		nonce = "not-" + nonce
	}

	key := p.key
	if p.BadSignature {
		key = p.rogueKey
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", keyID),
	)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]any{
		"iss":            p.Issuer(),
		"sub":            p.User.Subject,
		"aud":            ClientID,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
		"nonce":          nonce,
		"email":          p.User.Email,
		"email_verified": true,
		"name":           p.User.Name,
	})
	if err != nil {
		return "", err
	}

	jws, err := signer.Sign(payload)
	if err != nil {
		return "", err
	}

	return jws.CompactSerialize()
}

func tokenError(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
