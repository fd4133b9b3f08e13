package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/autoresolve/internal/api/http/handlers"
	"github.com/spec-kit/autoresolve/internal/auth"
)

// RouteConfig bundles dependencies for route registration. Admin and
// AdminMiddleware are nil when the operator API is disabled.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Webhook         *handlers.WebhookHandler
	Admin           *handlers.AdminHandler
	AdminMiddleware *auth.AdminMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/thanks", cfg.Webhook.Thanks)
	app.Post("/post", cfg.Webhook.Thanks)
	app.Post("/multi-message", cfg.Webhook.MultiMessage)

	if cfg.Admin == nil || cfg.AdminMiddleware == nil {
		return
	}
	admin := app.Group("/admin", cfg.AdminMiddleware.Handle)
	admin.Post("/classify", cfg.Admin.Classify)
	admin.Get("/stats", cfg.Admin.Stats)
}
