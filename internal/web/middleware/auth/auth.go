package auth

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/rpgate/rpgate/internal/web/session"
)

// LocalsKey is the fiber.Locals key of the current session.
const LocalsKey = "CurrentUser"

// New returns a middleware that loads the session of the request.
func New(store *session.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Cookies(store.CookieName())
		if id == "" {
			return c.Next()
		}

		data, err := store.Read(id)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) && !errors.Is(err, session.ErrExpired) {
				log.Error().Err(err).Msg("failed to read session")
			}

			c.Cookie(store.ClearCookie())

			return c.Next()
		}

		if data.Sliding {
			if err = store.Touch(&data); err != nil {
				log.Warn().Err(err).Msg("failed to renew session")
			} else {
				c.Cookie(store.Cookie(data))
			}
		}

		c.Locals(LocalsKey, data)

		return c.Next()
	}
}

// Current returns the session of the request, if any.
func Current(c fiber.Ctx) (session.Data, bool) {
	data, ok := c.Locals(LocalsKey).(session.Data)
	return data, ok
}

// Require redirects anonymous requests to the challenge path, asking to come back afterwards.
func Require(challengePath string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if _, ok := Current(c); ok {
			return c.Next()
		}

		target := challengePath + "?return_to=" + url.QueryEscape(c.OriginalURL())

		return c.Redirect().Status(fiber.StatusFound).To(target)
	}
}
