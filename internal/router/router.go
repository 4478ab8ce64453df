package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing
	"github.com/redis/go-redis/v9"

	"github.com/starevents/ticketing/internal/config"
	"github.com/starevents/ticketing/internal/handler"
	"github.com/starevents/ticketing/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers unauthenticated browse endpoints.  The
// PublicHandler returns sanitized data for events, venues and
// categories.  The catalogue is read-heavy and identical for every
// guest, so responses are cached in Redis and requests rate limited;
// both middlewares degrade to no-ops when Redis is unavailable.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, rdb *redis.Client) {
	g := e.Group(
		"/v1",
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	// Browse approved events with optional keyword/category/venue/date filters.
	g.GET("/events", p.ListEvents)
	// Event details; pending and rejected events are invisible here.
	g.GET("/events/:id", p.GetEvent)
	// Reference data for the browse filters.
	g.GET("/venues", p.ListVenues)
	g.GET("/categories", p.ListCategories)
}
