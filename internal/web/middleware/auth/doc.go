// Package auth provides authentication middleware for the web application.
//
// The middleware validates the session cookie, renews sliding sessions and
// adds the current session to fiber.Locals for use in handlers.
//
// The middleware performs the following tasks:
//   - Reads the session of the session cookie and drops invalid cookies
//   - Extends the idle expiry of sliding sessions on every request
//   - Adds the current session to fiber.Locals
//
// Usage:
//
//	app.Use(authmiddleware.New(sessions))
//	app.Get("/whoami", authmiddleware.Require(cfg.Auth.ChallengePath), whoami)
package auth
