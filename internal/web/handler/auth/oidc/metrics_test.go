package oidc

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpgate/rpgate/internal/auth"
	"github.com/rpgate/rpgate/internal/auth/authtest"
	"github.com/rpgate/rpgate/internal/config"
	"github.com/rpgate/rpgate/internal/web/session"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var m dto.Metric
	require.NoError(t, c.Write(&m))

	return m.GetCounter().GetValue()
}

func TestChallengeFailuresAreNotCallbacks(t *testing.T) {
	idp := authtest.New(t)

	cfg := &config.Config{
		Webserver: config.Webserver{Port: 8080, URL: "https://rp.example.com"},
		Session:   config.Session{CookieName: "rpgate_session", IdleTimeout: time.Minute},
		Auth: config.Auth{
			Authority:      idp.Issuer(),
			ClientID:       authtest.ClientID,
			ClientSecret:   authtest.ClientSecret,
			HomePath:       "/",
			ChallengePath:  "/challenge",
			CallbackPath:   "/callback",
			LogoutPath:     "/logout",
			ErrorPath:      "/error",
			Production:     true,
			CorrelationTTL: time.Minute,
		},
	}

	client, err := auth.NewOIDCProvider(context.Background(), &auth.OIDCConfig{
		Authority:    cfg.Auth.Authority,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		RedirectURL:  cfg.CallbackURL(),
		HTTPTimeout:  5 * time.Second,
	})
	require.NoError(t, err)

	storage := session.NewCache(time.Minute)

	app := fiber.New()
	svc := &Service{}
	require.NoError(t, svc.Init(app, cfg, Deps{
		Client:   client,
		Sessions: session.New(storage, cfg.Session, true),
		Requests: session.NewRequests(storage),
		Hooks: Hooks{
			OnBeforeRedirect: func(string) (string, error) { return "", errors.New("refused") },
		},
	}))

	kind := auth.LocalError.String()
	challengeFailures := counterValue(t, challengeFailuresTotal.WithLabelValues(kind))
	callbacks := counterValue(t, callbacksTotal.WithLabelValues(kind))
	challenges := counterValue(t, challengesTotal)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/challenge", nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.InDelta(t, challengeFailures+1, counterValue(t, challengeFailuresTotal.WithLabelValues(kind)), 0)
	assert.InDelta(t, callbacks, counterValue(t, callbacksTotal.WithLabelValues(kind)), 0)
	assert.InDelta(t, challenges, counterValue(t, challengesTotal), 0)
}
