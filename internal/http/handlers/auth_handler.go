package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"lukamath/internal/apperr"
	applog "lukamath/internal/log"
	"lukamath/internal/metrics"
	"lukamath/internal/services"
	"lukamath/internal/validate"
)

type AuthHandler struct {
	Auth    *services.AuthService
	Metrics *metrics.Metrics
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	u, err := h.Auth.Register(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			h.Metrics.AuthEvent("register_exists")
			applog.Security(c, "auth.register.exists", map[string]any{"email": in.Email})
		}
		return err
	}
	h.Metrics.AuthEvent("register")
	applog.Audit(c, "auth.register", map[string]any{"email": u.Email, "new_user": u.ID})
	return ok(c, fiber.StatusCreated, fiber.Map{"user": u.Public()})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if _, ok := validate.Email(in.Email); !ok {
		h.fail(c, in.Email, "bad_format")
		return services.ErrBadCreds
	}
	if !validate.PasswordShape(in.Password) {
		h.fail(c, in.Email, "bad_password_format")
		return services.ErrBadCreds
	}

	res, err := h.Auth.Login(c.UserContext(), in.Email, in.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.InvalidCredentials {
			h.fail(c, in.Email, "")
		}
		return err
	}

	c.Locals(applog.UserIDKey, res.User.ID)
	h.Metrics.AuthEvent("login_success")
	applog.Audit(c, "auth.login.success", map[string]any{"email": res.User.Email})
	return ok(c, fiber.StatusOK, fiber.Map{
		"token":     res.Token,
		"expiresAt": res.ExpiresAt.UTC(),
		"user":      res.User.Public(),
	})
}

func (h *AuthHandler) fail(c *fiber.Ctx, email, reason string) {
	h.Metrics.AuthEvent("login_fail")
	fields := map[string]any{"email": email}
	if reason != "" {
		fields["reason"] = reason
	}
	applog.Security(c, "auth.login.fail", fields)
}

// GET /api/auth/me and /api/auth/user
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u, err := h.Auth.CurrentUser(c.UserContext(), actor(c).Subject)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"user": u.Public()})
}

// POST /api/auth/logout. Tokens are not tracked server-side; the client
// drops its copy.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if id, ok := IdentityFrom(c); ok {
		applog.Audit(c, "auth.logout", map[string]any{"subject": id.Subject})
	}
	return ok(c, fiber.StatusOK, nil)
}
