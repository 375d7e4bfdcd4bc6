package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oeams/oeams-api/internal/config"
	"github.com/oeams/oeams-api/internal/handler"
	"github.com/oeams/oeams-api/internal/middleware"
	"github.com/oeams/oeams-api/internal/workflow"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	PostingHandler     *handler.PostingHandler
	ApplicationHandler *handler.ApplicationHandler
	RequirementHandler *handler.RequirementHandler
	AttendanceHandler  *handler.AttendanceHandler
	ProgressHandler    *handler.ProgressHandler
	AuditHandler       *handler.AuditHandler
	JWTMiddleware      fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	ojt := app.Group("/api/v1/ojt", jwtMiddleware)

	if deps.PostingHandler != nil {
		deps.PostingHandler.Register(ojt.Group("/postings"))
	}

	if deps.ApplicationHandler != nil {
		deps.ApplicationHandler.Register(ojt.Group("/applications"))
	}

	if deps.RequirementHandler != nil {
		deps.RequirementHandler.Register(ojt.Group("/requirements"))
	}

	if deps.AttendanceHandler != nil {
		// Punch-clock endpoints are the hottest write path; cap them
		// per user rather than per instance.
		attendance := ojt.Group("/attendance", middleware.RateLimit("attendance", 60, time.Minute))
		deps.AttendanceHandler.Register(attendance)
	}

	if deps.ProgressHandler != nil {
		deps.ProgressHandler.Register(ojt.Group("/progress"))
	}

	if deps.AuditHandler != nil {
		audit := ojt.Group("/audit", middleware.RequireRole(
			string(workflow.RoleCoordinator),
			string(workflow.RoleHead),
			string(workflow.RoleSuperadmin),
		))
		deps.AuditHandler.Register(audit)
	}
}
