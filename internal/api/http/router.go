package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/fleet-auth/internal/api/http/handlers"
	"github.com/spec-kit/fleet-auth/internal/auth"
	"github.com/spec-kit/fleet-auth/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Interceptor *auth.Interceptor
	Metrics     *observability.Metrics
	// Issuer enables the login endpoint; only the identity issuer sets it.
	Issuer bool
}

// RegisterRoutes wires HTTP routes and returns the protected group that
// business routes of the local service hang off.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) fiber.Router {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	if cfg.Issuer {
		authGroup.Post("/login", cfg.Auth.Login)
	}

	protected := app.Group("/api", cfg.Interceptor.Handle)
	protected.Get("/me", cfg.Auth.Me)
	return protected
}
