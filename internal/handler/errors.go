package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-lock-engine/internal/service"
)

// writeError maps lock manager outcomes to responses.  Sold is checked
// before the ownership errors it is joined with so clients can tell a lost
// race for the seat from a lapsed hold.
func writeError(c echo.Context, err error) error {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, service.ErrUnknownSeat):
		status, code = http.StatusNotFound, "unknown_seat"
	case errors.Is(err, service.ErrAlreadySold):
		status, code = http.StatusConflict, "already_sold"
	case errors.Is(err, service.ErrHeldByOther):
		status, code = http.StatusConflict, "held_by_other"
	case errors.Is(err, service.ErrNotOwner):
		status, code = http.StatusForbidden, "not_owner"
	case errors.Is(err, service.ErrLockNotOwned):
		status, code = http.StatusForbidden, "lock_not_owned"
	case errors.Is(err, service.ErrStoreUnavailable):
		status, code = http.StatusServiceUnavailable, "store_unavailable"
	}
	if status >= http.StatusInternalServerError {
		// Store details stay in the logs.
		return c.JSON(status, echo.Map{"error": code})
	}
	return c.JSON(status, echo.Map{"error": code, "message": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": msg})
}
