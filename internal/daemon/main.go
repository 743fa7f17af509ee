// Package daemon wires storage, the OIDC client, the audit trail and the web service.
package daemon

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/rpgate/rpgate/internal/audit"
	"github.com/rpgate/rpgate/internal/auth"
	"github.com/rpgate/rpgate/internal/config"
	"github.com/rpgate/rpgate/internal/web"
	oidchandler "github.com/rpgate/rpgate/internal/web/handler/auth/oidc"
	"github.com/rpgate/rpgate/internal/web/session"
)

// ErrNilConfig is returned by New without a config.
var ErrNilConfig = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
	storage    session.Storage
}

// Start runs the web service until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	defer d.close()

	addr := net.JoinHostPort("", strconv.Itoa(d.cfg.Webserver.Port))

	errs := make(chan error, 1)

	go func() {
		errs <- d.webService.Start(addr)
	}()

	log.Info().Str("addr", addr).Str("callback", d.cfg.CallbackURL()).Msg("rpgate started")

	go d.webService.WaitShutdown()

	return <-errs
}

func (d *Daemon) close() {
	if err := d.storage.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close session storage")
	}
}

// New creates a Daemon. The identity provider is discovered here, a provider
// that can not be reached keeps the daemon from starting.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	client, err := auth.NewOIDCProvider(ctx, &auth.OIDCConfig{
		Authority:          cfg.Auth.Authority,
		ClientID:           cfg.Auth.ClientID,
		ClientSecret:       cfg.Auth.ClientSecret,
		RedirectURL:        cfg.CallbackURL(),
		Scopes:             cfg.Auth.Scopes,
		HTTPTimeout:        cfg.Auth.HTTPTimeout,
		EndSessionEndpoint: cfg.Auth.EndSessionEndpoint,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("authority", cfg.Auth.Authority).Msg("oidc provider discovered")

	if _, ok := client.EndSessionEndpoint(); cfg.Auth.FederatedSignOut && !ok {
		log.Warn().Msg("federated sign out is enabled but the provider has no end_session_endpoint")
	}

	storage, err := session.NewStorage(cfg.Session)
	if err != nil {
		return nil, err
	}

	recorder, err := audit.Open(cfg.Audit)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	webService, err := web.New(cfg, oidchandler.Deps{
		Client:   client,
		Sessions: session.New(storage, cfg.Session, !cfg.DevMode),
		Requests: session.NewRequests(storage),
		Audit:    recorder,
	})
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	return &Daemon{
		cfg:        cfg,
		webService: webService,
		storage:    storage,
	}, nil
}
