package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-lock-engine/internal/middleware"
	"github.com/iliyamo/seat-lock-engine/internal/service"
)

// AdminHandler serves operator-only routes.  Callers must pass JWTAuth and
// RequireRole(middleware.RoleAdmin).
type AdminHandler struct {
	Locks *service.LockManager
	Log   *zap.Logger
}

func NewAdminHandler(locks *service.LockManager, log *zap.Logger) *AdminHandler {
	if locks == nil {
		panic("nil lock manager passed to NewAdminHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Locks: locks, Log: log}
}

// ResetSeat handles DELETE /v1/admin/events/:event_id/seats/:seat_id.  It
// clears a seat in any state, sold included.
func (h *AdminHandler) ResetSeat(c echo.Context) error {
	var p seatPath
	if err := bindValid(c, &p); err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.Locks.Reset(c.Request().Context(), p.EventID, p.SeatID); err != nil {
		return writeError(c, err)
	}
	h.Log.Info("admin seat reset",
		zap.String("operator", middleware.HolderID(c)),
		zap.String("event_id", p.EventID),
		zap.String("seat_id", p.SeatID),
	)
	return c.NoContent(http.StatusNoContent)
}
