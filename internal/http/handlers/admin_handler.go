package handlers

import (
	"github.com/gofiber/fiber/v2"

	"lukamath/internal/apperr"
	"lukamath/internal/domain"
	applog "lukamath/internal/log"
	"lukamath/internal/services"
)

type AdminHandler struct {
	Users *services.UserService
}

type roleRequest struct {
	Role string `json:"role"`
}

// GET /api/admin/users?role=tutor
func (h *AdminHandler) List(c *fiber.Ctx) error {
	var role domain.Role
	if q := c.Query("role"); q != "" {
		r, ok := domain.ParseRole(q)
		if !ok {
			return apperr.Validation("unknown role")
		}
		role = r
	}
	users, err := h.Users.List(c.UserContext(), actor(c), role)
	if err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		return err
	}
	out := make([]domain.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return ok(c, fiber.StatusOK, fiber.Map{"users": out})
}

// PUT /api/admin/users/:id/role
func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	var in roleRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	role, _ := domain.ParseRole(in.Role)
	u, err := h.Users.SetRole(c.UserContext(), actor(c), c.Params("id"), role)
	if err != nil {
		return denied(c, "admin", err)
	}
	applog.Audit(c, "admin.users.role", map[string]any{"target": u.ID, "role": u.Role})
	return ok(c, fiber.StatusOK, fiber.Map{"user": u.Public()})
}

// DELETE /api/admin/users/:id
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Users.Deactivate(c.UserContext(), actor(c), id); err != nil {
		return denied(c, "admin", err)
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"target": id})
	return ok(c, fiber.StatusOK, nil)
}
