package middleware

import "github.com/labstack/echo/v4"

// HolderID returns the authenticated holder id stored by JWTAuth, or "" on
// routes that are not behind JWTAuth.
func HolderID(c echo.Context) string {
	if v, ok := c.Get(ctxHolderID).(string); ok {
		return v
	}
	return ""
}

// Role returns the role claim stored by JWTAuth.
func Role(c echo.Context) string {
	if v, ok := c.Get(ctxRole).(string); ok {
		return v
	}
	return ""
}
