package router

import (
	"github.com/labstack/echo/v4"

	"github.com/starevents/ticketing/internal/handler"
	"github.com/starevents/ticketing/internal/middleware"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.  All
// routes require a valid JWT and the ADMIN role.  Admins moderate
// organizer-submitted events and manage promo codes.
func RegisterAdmin(e *echo.Echo, ev *handler.AdminEventHandler, d *handler.AdminDiscountHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)

	// ---- Moderation ----
	g.GET("/events", ev.ListEvents) // optional ?status=PENDING filter
	g.POST("/events/:id/approve", ev.ApproveEvent)
	g.POST("/events/:id/reject", ev.RejectEvent)

	// ---- Discounts ----
	g.GET("/discounts", d.ListDiscounts)
	g.GET("/discounts/:id", d.GetDiscount)
	g.POST("/discounts", d.CreateDiscount)
	g.PUT("/discounts/:id", d.UpdateDiscount)
	g.DELETE("/discounts/:id", d.DeleteDiscount)
}
