package oidc

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/rpgate/rpgate/internal/auth"
	"github.com/rpgate/rpgate/internal/web/handler"
)

// Reporter renders a failed sign in to the browser.
type Reporter interface {
	Report(c fiber.Ctx, rec auth.FailureRecord) error
}

// TextReporter answers with HTTP 500 and the disclosable message as plain text.
type TextReporter struct{}

// Report implements Reporter.
func (TextReporter) Report(c fiber.Ctx, rec auth.FailureRecord) error {
	handler.NoStore(c)

	return c.Status(fiber.StatusInternalServerError).SendString(FailureText(c, rec))
}

// FailureText is the message of rec followed by the request id, if the
// requestid middleware assigned one. The id is logged with the failure.
func FailureText(c fiber.Ctx, rec auth.FailureRecord) string {
	id := requestid.FromContext(c)
	if id == "" {
		return rec.Message()
	}

	return rec.Message() + " (request id: " + id + ")"
}
