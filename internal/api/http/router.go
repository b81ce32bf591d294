package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-workflow/internal/api/http/handlers"
	"github.com/spec-kit/support-workflow/internal/auth"
	"github.com/spec-kit/support-workflow/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Assignments    *handlers.AssignmentsHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	adminOnly := auth.RequireRole(domain.RoleAdmin)

	// Bulk route registers before /tickets/:id so "bulk" never binds as an id.
	api.Post("/tickets/bulk", adminOnly, cfg.Assignments.BulkUpdate)

	api.Post("/tickets", cfg.Tickets.CreateTicket)
	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Get("/tickets/:id", cfg.Tickets.GetTicket)
	api.Patch("/tickets/:id", cfg.Tickets.UpdateTicket)
	api.Post("/tickets/:id/messages", cfg.Tickets.AddMessage)

	api.Put("/tickets/:id/assignee", adminOnly, cfg.Assignments.Assign)
	api.Get("/stats", adminOnly, cfg.Stats.Overview)
}
