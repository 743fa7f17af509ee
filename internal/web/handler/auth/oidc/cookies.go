package oidc

import (
	"encoding/base64"
	"time"

	"github.com/gofiber/fiber/v3"
)

const (
	// CorrelationCookie binds a pending challenge to the browser, it holds the state.
	CorrelationCookie = "rpgate_state"

	// FlashCookie carries the message of the last failure to the error page.
	FlashCookie = "rpgate_error"

	flashLifetime = time.Minute
)

func (s *Service) correlationCookie(state string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     CorrelationCookie,
		Value:    state,
		Path:     s.cfg.Auth.CallbackPath,
		MaxAge:   int(s.cfg.Auth.CorrelationTTL.Seconds()),
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func (s *Service) flashCookie(message string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     s.cfg.Auth.ErrorPath,
		MaxAge:   int(flashLifetime.Seconds()),
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func readFlash(value string) (string, bool) {
	if value == "" {
		return "", false
	}

	b, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(b) == 0 {
		return "", false
	}

	return string(b), true
}

func (s *Service) clearCookie(name, path string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(1, 0),
		Secure:   s.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
