package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health returns a health-check endpoint for load balancers.  Without the
// lease store no seat can be locked, so a failed Redis ping reports 503.
func Health(rdb redis.UniversalClient) echo.HandlerFunc {
	return func(c echo.Context) error {
		if rdb != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				return c.String(http.StatusServiceUnavailable, "lease store unreachable")
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}
