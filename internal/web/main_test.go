package web

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgate/rpgate/internal/auth"
	"github.com/rpgate/rpgate/internal/auth/authtest"
	"github.com/rpgate/rpgate/internal/config"
	oidchandler "github.com/rpgate/rpgate/internal/web/handler/auth/oidc"
	"github.com/rpgate/rpgate/internal/web/session"
)

func newTestService(t *testing.T) (*Service, *authtest.IdP) {
	t.Helper()

	idp := authtest.New(t)

	cfg := &config.Config{
		Title:     "rpgate",
		DevMode:   true,
		Webserver: config.Webserver{Port: 8080, URL: "http://localhost:8080", Metrics: true},
		Session: config.Session{
			Storage:     session.StorageMemory,
			CookieName:  "rpgate_session",
			IdleTimeout: 5 * time.Minute,
			MaxLifetime: time.Hour,
			Sliding:     true,
		},
		Auth: config.Auth{
			Authority:      idp.Issuer(),
			ClientID:       authtest.ClientID,
			ClientSecret:   authtest.ClientSecret,
			HomePath:       "/",
			ChallengePath:  "/challenge",
			CallbackPath:   "/callback",
			LogoutPath:     "/logout",
			ErrorPath:      "/error",
			CorrelationTTL: 5 * time.Minute,
			HTTPTimeout:    5 * time.Second,
		},
	}

	client, err := auth.NewOIDCProvider(context.Background(), &auth.OIDCConfig{
		Authority:    cfg.Auth.Authority,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		RedirectURL:  cfg.CallbackURL(),
		HTTPTimeout:  cfg.Auth.HTTPTimeout,
	})
	require.NoError(t, err)

	storage := session.NewCache(time.Minute)

	svc, err := New(cfg, oidchandler.Deps{
		Client:   client,
		Sessions: session.New(storage, cfg.Session, false),
		Requests: session.NewRequests(storage),
	})
	require.NoError(t, err)

	return svc, idp
}

func call(t *testing.T, svc *Service, target string, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := svc.App.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)

	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(b)
}

func named(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}

func TestSignInThroughTheApp(t *testing.T) {
	svc, idp := newTestService(t)

	_, body := call(t, svc, "/")
	assert.Equal(t, "rpgate: anonymous, sign in at /challenge", body)

	resp, _ := call(t, svc, "/challenge")
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	correlation := named(resp, oidchandler.CorrelationCookie)
	require.NotNil(t, correlation)

	callback, err := idp.Authorize(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)

	// the correlation cookie is encrypted, the state is not readable from it
	assert.NotEqual(t, callback.Query().Get("state"), correlation.Value)

	resp, _ = call(t, svc, callback.RequestURI(), correlation)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))

	sessionCookie := named(resp, "rpgate_session")
	require.NotNil(t, sessionCookie)

	_, body = call(t, svc, "/", sessionCookie)
	assert.Equal(t, "rpgate: authenticated as user@example.com", body)

	resp, body = call(t, svc, "/whoami", sessionCookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"subject":"user@example.com"`)

	resp, _ = call(t, svc, "/logout", sessionCookie)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	_, body = call(t, svc, "/", sessionCookie)
	assert.Equal(t, "rpgate: anonymous, sign in at /challenge", body)
}

func TestCheckAlive(t *testing.T) {
	svc, _ := newTestService(t)

	resp, body := call(t, svc, "/checkalive")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	svc.alive.Store(false)

	resp, _ = call(t, svc, "/checkalive")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.False(t, svc.Alive())
}

func TestMetrics(t *testing.T) {
	svc, _ := newTestService(t)

	call(t, svc, "/challenge")

	resp, body := call(t, svc, "/metrics")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "rpgate_auth_challenges_total")
}

func TestSecurityHeaders(t *testing.T) {
	svc, _ := newTestService(t)

	resp, _ := call(t, svc, "/")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, oidchandler.Deps{})
	require.Error(t, err)

	_, err = New(&config.Config{}, oidchandler.Deps{})
	require.Error(t, err)
}

func TestCookieEncryptionKey(t *testing.T) {
	key := cookieEncryptionKey(&config.Config{})
	assert.Len(t, key, 44)

	decoded, err := base64.StdEncoding.DecodeString(key)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)

	assert.NotEqual(t, key, cookieEncryptionKey(&config.Config{}))

	configured := base64.StdEncoding.EncodeToString(make([]byte, 16))
	assert.Equal(t, configured, cookieEncryptionKey(&config.Config{Webserver: config.Webserver{CookieEncryptionKey: configured}}))
}
