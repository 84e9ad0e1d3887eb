package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-intern-api/internal/config"
	"github.com/noah-isme/gema-intern-api/internal/handler"
	"github.com/noah-isme/gema-intern-api/internal/middleware"
	"github.com/noah-isme/gema-intern-api/internal/observability"
	"github.com/noah-isme/gema-intern-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	LogHandler          *handler.LogHandler
	GamificationHandler *handler.GamificationHandler
	PollHandler         *handler.PollHandler
	NotificationHandler *handler.NotificationHandler
	ActivityHandler     *handler.ActivityHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	writeLimit := writeRateLimit(cfg.WriteRateLimit)
	v2 := app.Group("/api/v2", jwtMiddleware)

	if deps.LogHandler != nil {
		deps.LogHandler.Register(v2.Group("/logs", writeLimit))
	}

	if deps.GamificationHandler != nil {
		deps.GamificationHandler.Register(v2.Group("/gamification"))
	}

	if deps.PollHandler != nil {
		deps.PollHandler.Register(v2.Group("/polls", writeLimit))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(v2.Group("/notifications"))
	}

	if deps.ActivityHandler != nil {
		activities := v2.Group("/activities", middleware.RequireRole(service.RoleMentor, service.RoleAdvisor, service.RoleAdmin))
		deps.ActivityHandler.Register(activities)
	}
}

// writeRateLimit throttles mutating requests only; reads pass through.
func writeRateLimit(perMinute int) fiber.Handler {
	limiter := middleware.RateLimit("write", perMinute, time.Minute)
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
			return c.Next()
		}
		return limiter(c)
	}
}
