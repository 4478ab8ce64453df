package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/starevents/ticketing/internal/handler"    // organizer handlers
	"github.com/starevents/ticketing/internal/middleware" // JWT + role middlewares
)

// RegisterOrganizer registers ORGANIZER-scoped endpoints under /v1.
// All routes require a valid JWT and the ORGANIZER role.  Organizers
// manage their own events (which enter the moderation queue) and read
// their sales dashboard.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group(
		"/v1/organizer",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleOrganizer),
	)

	// ---- Events ----
	g.GET("/events", o.ListMyEvents)
	g.POST("/events", o.CreateEvent) // new events start PENDING
	g.PUT("/events/:id", o.UpdateEvent)
	g.PATCH("/events/:id", o.UpdateEvent) // alias for clients that use PATCH
	g.DELETE("/events/:id", o.DeleteEvent)

	// ---- Dashboard ----
	g.GET("/stats", o.GetStats)
}
