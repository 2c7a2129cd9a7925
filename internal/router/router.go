package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-lock-engine/internal/handler"
	"github.com/iliyamo/seat-lock-engine/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, rdb redis.UniversalClient) {
	e.GET("/healthz", handler.Health(rdb))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// SeatMiddleware carries the optional Redis-backed middlewares.  A nil
// entry disables it.
type SeatMiddleware struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterSeats registers the venue, status and lock routes.  Reads are
// public so the seat map can be polled without a session; every mutation
// needs a bearer token whose subject becomes the holder id.
func RegisterSeats(e *echo.Echo, h *handler.SeatHandler, jwtSecret string, mw SeatMiddleware) {
	e.GET("/v1/venue", h.VenueLayout)

	events := e.Group("/v1/events/:event_id/seats")
	if mw.Cache != nil {
		events.GET("", h.ListSeats, mw.Cache)
	} else {
		events.GET("", h.ListSeats)
	}
	events.GET("/:seat_id", h.GetSeat)

	mutating := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}
	if mw.RateLimit != nil {
		mutating = append(mutating, mw.RateLimit)
	}
	events.POST("/:seat_id/lock", h.Lock, mutating...)
	events.DELETE("/:seat_id/lock", h.Release, mutating...)
	events.POST("/:seat_id/purchase", h.Purchase, mutating...)
}

// RegisterAdmin registers operator routes behind the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(middleware.RoleAdmin))
	g.DELETE("/events/:event_id/seats/:seat_id", a.ResetSeat)
}
