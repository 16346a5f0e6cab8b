// Package server assembles the fiber app: middleware, error rendering and the
// /api route table.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"lukamath/internal/apperr"
	"lukamath/internal/config"
	"lukamath/internal/domain"
	"lukamath/internal/http/handlers"
	applog "lukamath/internal/log"
	"lukamath/internal/metrics"
)

const genericError = "Something went wrong. Please try again."

// ErrorHandler renders every failure as {"success":false,"message":...}.
// Internal causes are logged, never sent.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, msg := fiber.StatusInternalServerError, genericError

	var fe *fiber.Error
	if ae, ok := apperr.As(err); ok {
		status = ae.Kind.Status()
		if status == 0 || status >= fiber.StatusInternalServerError {
			status = fiber.StatusInternalServerError
			applog.Error(c, "server.error", err, nil)
		} else {
			msg = ae.Message
		}
	} else if errors.As(err, &fe) {
		status, msg = fe.Code, fe.Message
		if status >= fiber.StatusInternalServerError {
			applog.Error(c, "server.error", err, nil)
			msg = genericError
		}
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "message": msg})
}

// NewApp builds the app on db. Pass nil m to get a private registry.
func NewApp(db *sqlx.DB, cfg config.Config, m *metrics.Metrics) *fiber.App {
	if m == nil {
		m = metrics.New()
	}
	deps := handlers.NewDeps(db, cfg, m)

	app := fiber.New(fiber.Config{
		AppName:      "lukamath",
		ErrorHandler: ErrorHandler,
		// uploads are the largest bodies; leave room for multipart framing
		BodyLimit: cfg.MaxUploadBytes + 64<<10,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.Env != "test" {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(m.Middleware())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			applog.Error(c, "health.db.fail", err, nil)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"ok": false})
		}
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Get("/metrics", m.Handler())

	api := app.Group("/api", handlers.Authenticate(deps.Tokens, m))
	mountAuth(api, deps, cfg)

	user := handlers.RequireUser()
	prof := api.Group("/profile", user)
	prof.Get("/", deps.ProfileHandler.Get)
	prof.Put("/", deps.ProfileHandler.Update)
	prof.Put("/password", deps.ProfileHandler.ChangePassword)

	hw := api.Group("/homework", user)
	hw.Get("/", deps.HomeworkHandler.List)
	hw.Post("/", handlers.RequireRole(domain.RoleTutor, domain.RoleAdmin), deps.HomeworkHandler.Create)
	hw.Get("/:id", deps.HomeworkHandler.Get)
	hw.Put("/:id", deps.HomeworkHandler.Update)
	hw.Delete("/:id", deps.HomeworkHandler.Delete)
	hw.Get("/:id/submissions", deps.HomeworkHandler.Submissions)
	hw.Post("/:id/submissions", handlers.RequireRole(domain.RoleStudent), deps.HomeworkHandler.Submit)

	subs := api.Group("/submissions", user)
	subs.Put("/:id", deps.SubmissionHandler.Update)
	subs.Post("/:id/grade", handlers.RequireRole(domain.RoleTutor, domain.RoleAdmin), deps.SubmissionHandler.Grade)
	subs.Post("/:id/files", deps.SubmissionHandler.Upload)
	subs.Get("/:id/files/:fileId", deps.SubmissionHandler.Download)

	admin := api.Group("/admin", handlers.RequireRole(domain.RoleAdmin))
	admin.Get("/users", deps.AdminHandler.List)
	admin.Put("/users/:id/role", deps.AdminHandler.SetRole)
	admin.Delete("/users/:id", deps.AdminHandler.Delete)

	return app
}

func mountAuth(api fiber.Router, deps *handlers.Deps, cfg config.Config) {
	auth := api.Group("/auth")
	auth.Post("/register", deps.AuthHandler.Register)
	// Login throttled per client IP
	auth.Post("/login", limiter.New(limiter.Config{
		Max:        cfg.LoginRateMax,
		Expiration: cfg.LoginRateWin,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|login"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			deps.Metrics.AuthEvent("login_throttled")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many attempts. Please try again later.",
			})
		},
	}), deps.AuthHandler.Login)
	auth.Get("/me", handlers.RequireUser(), deps.AuthHandler.Me)
	auth.Get("/user", handlers.RequireUser(), deps.AuthHandler.Me)
	auth.Post("/logout", deps.AuthHandler.Logout)
}
