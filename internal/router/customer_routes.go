package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/starevents/ticketing/internal/config"
	"github.com/starevents/ticketing/internal/handler"
	"github.com/starevents/ticketing/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All
// routes require a valid JWT and the CUSTOMER role.  Customers can
// price a checkout, reserve tickets, confirm or cancel bookings, list
// their bookings and view their loyalty balance and history.  The
// whole group is rate limited per user so one customer hammering
// reserve cannot starve others.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, l *handler.LoyaltyHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleCustomer),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)

	// ---- Bookings ----
	g.POST("/bookings/quote", b.QuoteBooking) // price preview, reserves nothing
	g.POST("/bookings", b.CreateBooking)      // reserve seats, 10 minute hold
	g.GET("/bookings/:id", b.GetBooking)      // summary; lazily expires overdue holds
	g.POST("/bookings/:id/confirm", b.ConfirmBooking)
	g.DELETE("/bookings/:id", b.CancelBooking)
	g.GET("/my-bookings", b.ListBookings)
	g.GET("/my-bookings/history", b.BookingHistory) // paid bookings only

	// ---- Loyalty ----
	g.GET("/loyalty/balance", l.GetBalance)
	g.GET("/loyalty/history", l.GetHistory)
}
