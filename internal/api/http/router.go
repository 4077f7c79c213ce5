package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soportec/helpdesk-core/internal/api/http/handlers"
	"github.com/soportec/helpdesk-core/internal/auth"
	"github.com/soportec/helpdesk-core/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Audit          *handlers.AuditHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	authed := app.Group("", cfg.AuthMiddleware.Handle)
	authed.Post("/auth/logout", cfg.Auth.Logout)
	authed.Post("/presence/heartbeat", cfg.Auth.Heartbeat)

	tickets := authed.Group("/tickets")
	tickets.Post("", auth.RequireRole(domain.RoleRequester), cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/user/:id/active", auth.RequireStaff(), cfg.Tickets.ActiveWork)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", auth.RequireStaff(), cfg.Tickets.GetTicketHistory)
	tickets.Post("/:id/assign", auth.RequireStaff(), cfg.Tickets.AssignTicket)
	tickets.Post("/:id/reassign", auth.RequireStaff(), cfg.Tickets.ReassignTicket)
	tickets.Patch("/:id/state", auth.RequireStaff(), cfg.Tickets.TransitionTicket)

	authed.Get("/audit", auth.RequireStaff(), cfg.Audit.QueryAudit)
	authed.Delete("/audit", auth.RequireStaff(), cfg.Audit.PurgeAudit)

	authed.Get("/users/support/online", auth.RequireStaff(), cfg.Users.ListOnlineSupport)
	authed.Get("/branches", cfg.Users.ListBranches)
}
