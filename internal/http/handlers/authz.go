package handlers

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"lukamath/internal/apperr"
	"lukamath/internal/domain"
	applog "lukamath/internal/log"
	"lukamath/internal/metrics"
	"lukamath/internal/token"
)

const identityKey = "identity"

// IdentityFrom returns the verified identity Authenticate attached, if any.
func IdentityFrom(c *fiber.Ctx) (token.Identity, bool) {
	id, ok := c.Locals(identityKey).(token.Identity)
	return id, ok
}

// Authenticate verifies the bearer token when one is sent. Requests without
// an Authorization header continue anonymously; a header that is present but
// does not verify is rejected here with 401.
func Authenticate(tokens *token.Manager, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		if h == "" {
			return c.Next()
		}
		scheme, raw, found := strings.Cut(h, " ")
		raw = strings.TrimSpace(raw)
		if !found || !strings.EqualFold(scheme, "Bearer") || raw == "" {
			m.AuthEvent("token_invalid")
			applog.Security(c, "auth.token.invalid", map[string]any{"reason": "malformed_header"})
			return apperr.E(apperr.InvalidToken, "invalid token")
		}
		id, err := tokens.Verify(raw)
		if err != nil {
			m.AuthEvent("token_invalid")
			applog.Security(c, "auth.token.invalid", map[string]any{"reason": err.Error()})
			return err
		}
		c.Locals(identityKey, id)
		c.Locals(applog.UserIDKey, id.Subject)
		return c.Next()
	}
}

// RequireUser rejects anonymous requests with MissingToken.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFrom(c); !ok {
			return apperr.E(apperr.MissingToken, "authentication required")
		}
		return c.Next()
	}
}

// RequireRole admits only the listed roles.
func RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return apperr.E(apperr.MissingToken, "authentication required")
		}
		if !slices.Contains(roles, id.Role) {
			applog.Security(c, "access.denied.role", map[string]any{"role": id.Role, "need": roles})
			return apperr.Forbid("insufficient role")
		}
		return c.Next()
	}
}

// actor is for handlers mounted behind RequireUser.
func actor(c *fiber.Ctx) token.Identity {
	id, _ := IdentityFrom(c)
	return id
}
