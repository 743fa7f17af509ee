// Package home provides the application home and the whoami endpoint.
package home

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/rpgate/rpgate/internal/config"
	"github.com/rpgate/rpgate/internal/web/handler"
	authmiddleware "github.com/rpgate/rpgate/internal/web/middleware/auth"
)

// WhoAmIPath returns the current session as json.
const WhoAmIPath = handler.RootPath + "whoami"

// WhoAmI is the json answer of WhoAmIPath.
type WhoAmI struct {
	Subject   string    `json:"subject"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service is the home handler service.
type Service struct {
	cfg *config.Config
}

// Init registers the home and whoami routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return handler.ErrNilDependency
	}

	s.cfg = cfg

	app.Get(cfg.Auth.HomePath, s.Get)
	app.Get(WhoAmIPath, authmiddleware.Require(cfg.Auth.ChallengePath), s.WhoAmI)

	return nil
}

// Get answers with the sign in status of the browser as plain text.
func (s *Service) Get(c fiber.Ctx) error {
	handler.NoStore(c)

	data, ok := authmiddleware.Current(c)
	if !ok {
		return c.SendString(s.cfg.Title + ": anonymous, sign in at " + s.cfg.Auth.ChallengePath)
	}

	return c.SendString(s.cfg.Title + ": authenticated as " + data.Subject)
}

// WhoAmI returns the current session.
func (s *Service) WhoAmI(c fiber.Ctx) error {
	handler.NoStore(c)

	data, _ := authmiddleware.Current(c)

	return c.JSON(WhoAmI{
		Subject:   data.Subject,
		Email:     data.Email,
		Name:      data.Name,
		IssuedAt:  data.IssuedAt,
		ExpiresAt: data.ExpiresAt,
	})
}
