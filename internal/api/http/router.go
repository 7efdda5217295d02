package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/procurement-auth/internal/api/http/handlers"
	"github.com/spec-kit/procurement-auth/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Auth   *handlers.AuthHandler
	Guard  *auth.Guard
}

// RegisterRoutes wires HTTP routes. The guard runs app-wide; its bypass list
// lets the public surface (login, register, refresh, health, docs, public
// assets) through untouched, so ordering here carries no auth significance.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Guard.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.Auth.Me)
}
