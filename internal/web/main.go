// Package web wires the fiber application: middleware, the sign in flow,
// the home handler, health checks and metrics.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/encryptcookie"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/rpgate/rpgate/internal/config"
	fiberlogger "github.com/rpgate/rpgate/internal/logger/adapter/fiber"
	"github.com/rpgate/rpgate/internal/web/handler"
	oidchandler "github.com/rpgate/rpgate/internal/web/handler/auth/oidc"
	"github.com/rpgate/rpgate/internal/web/handler/home"
	authmiddleware "github.com/rpgate/rpgate/internal/web/middleware/auth"
)

const (
	cookieKeyLength = 32
	hstsMaxAge      = 365 * 24 * 60 * 60
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address and blocks until it is stopped.
func (s *Service) Start(addr string) error {
	err := s.App.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts the web service down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown reports 503 on the check alive path for Webserver.ShutDownTime
// seconds, so the load balancer removes this instance, then stops the server.
func (s *Service) Shutdown() {
	s.alive.Store(false)

	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether the service accepts traffic.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates the web service. deps are handed to the sign in flow.
func New(cfg *config.Config, deps oidchandler.Deps) (*Service, error) {
	if cfg == nil || deps.Sessions == nil {
		return nil, handler.ErrNilDependency
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Immutable:      true,
			ProxyHeader:    cfg.Webserver.ProxyHeader,
		},
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recoverer.New(recoverer.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(requestid.New())

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: handler.CheckAlivePath,
	}))

	helmetConfig := helmet.Config{}
	if !cfg.DevMode {
		helmetConfig.HSTSMaxAge = hstsMaxAge
	}

	app.Use(helmet.New(helmetConfig))
	app.Use(encryptcookie.New(encryptcookie.Config{Key: cookieEncryptionKey(cfg)}))

	app.Get(handler.CheckAlivePath, service.checkAlive)

	if cfg.Webserver.Metrics {
		app.Get(handler.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	app.Use(authmiddleware.New(deps.Sessions))

	if err := new(oidchandler.Service).Init(app, cfg, deps); err != nil {
		return nil, err
	}

	if err := new(home.Service).Init(app, cfg); err != nil {
		return nil, err
	}

	return service, nil
}

func (s *Service) checkAlive(c fiber.Ctx) error {
	handler.NoStore(c)

	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("OK")
}

// cookieEncryptionKey returns the configured key or a random one. Cookies
// encrypted with a random key do not survive a restart and are not readable
// by other replicas.
func cookieEncryptionKey(cfg *config.Config) string {
	if cfg.Webserver.CookieEncryptionKey != "" {
		return cfg.Webserver.CookieEncryptionKey
	}

	log.Warn().Msg("webserver.cookieencryptionkey is empty, using a random key: sessions will not survive a restart")

	return encryptcookie.GenerateKey(cookieKeyLength)
}
