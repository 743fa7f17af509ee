// Package handler holds what the web handlers share.
package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
)

// ErrNilDependency is returned by Init when app, cfg or a required dependency is nil.
var ErrNilDependency = errors.New("app, cfg or a dependency is nil")

// NoStore marks the response as not cacheable.
func NoStore(c fiber.Ctx) {
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderPragma, "no-cache")
}
