package handlers

import (
	"github.com/gofiber/fiber/v2"

	"lukamath/internal/apperr"
	applog "lukamath/internal/log"
)

func ok(c *fiber.Ctx, status int, body fiber.Map) error {
	if body == nil {
		body = fiber.Map{}
	}
	body["success"] = true
	return c.Status(status).JSON(body)
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// denied logs authorization failures under access.denied.<what> and returns
// err unchanged so the error handler still renders it.
func denied(c *fiber.Ctx, what string, err error) error {
	if apperr.KindOf(err) == apperr.Forbidden {
		applog.Security(c, "access.denied."+what, map[string]any{"target": c.Params("id")})
	}
	return err
}
