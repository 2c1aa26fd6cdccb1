package handlers

import (
	"context"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/court-causelist/backend/internal/browser"
	"github.com/court-causelist/backend/internal/causelist"
	"github.com/court-causelist/backend/internal/scraper"
	"github.com/court-causelist/backend/internal/storage/sqlite"
)

// statusFor maps service errors to HTTP statuses. Contained scraping faults
// never reach here; they surface as empty results.
func statusFor(err error) int {
	switch {
	case errors.Is(err, causelist.ErrInvalidRequest), errors.Is(err, scraper.ErrUnknownSite):
		return fiber.StatusBadRequest
	case errors.Is(err, sqlite.ErrNotFound), errors.Is(err, causelist.ErrExpired):
		return fiber.StatusNotFound
	case errors.Is(err, browser.ErrSessionUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error, action string) error {
	status := statusFor(err)
	detail := action + ": " + err.Error()
	if status == fiber.StatusServiceUnavailable {
		detail = action + ": browser session unavailable, please retry later"
	}
	return c.Status(status).JSON(fiber.Map{"detail": detail})
}

func param(c *fiber.Ctx, name string) string {
	v := c.Params(name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}
