package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "lukamath/internal/log"
	"lukamath/internal/services"
)

type ProfileHandler struct {
	Users *services.UserService
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// GET /api/profile
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	u, err := h.Users.Profile(c.UserContext(), actor(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"user": u.Public()})
}

// PUT /api/profile
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	var in services.ProfileInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	u, err := h.Users.UpdateProfile(c.UserContext(), actor(c), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "profile.update", nil)
	return ok(c, fiber.StatusOK, fiber.Map{"user": u.Public()})
}

// PUT /api/profile/password
func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	var in passwordRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if err := h.Users.ChangePassword(c.UserContext(), actor(c), in.CurrentPassword, in.NewPassword); err != nil {
		applog.Security(c, "profile.password.fail", nil)
		return err
	}
	applog.Audit(c, "profile.password.change", nil)
	return ok(c, fiber.StatusOK, nil)
}
