package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-lock-engine/internal/middleware"
	"github.com/iliyamo/seat-lock-engine/internal/model"
	"github.com/iliyamo/seat-lock-engine/internal/service"
	"github.com/iliyamo/seat-lock-engine/internal/venue"
)

// SeatHandler exposes the lock manager and the status aggregator over HTTP.
// Lock, Release and Purchase must run behind JWTAuth: the token subject is
// the holder id.
type SeatHandler struct {
	Locks  *service.LockManager
	Status *service.StatusAggregator
	Venue  *venue.Venue
}

// NewSeatHandler panics if any dependency is nil.
func NewSeatHandler(locks *service.LockManager, status *service.StatusAggregator, v *venue.Venue) *SeatHandler {
	if locks == nil || status == nil || v == nil {
		panic("nil dependency passed to NewSeatHandler")
	}
	return &SeatHandler{Locks: locks, Status: status, Venue: v}
}

type seatPath struct {
	EventID string `param:"event_id" validate:"required,max=128,excludesall=:"`
	SeatID  string `param:"seat_id" validate:"required,max=64"`
}

type releaseRequest struct {
	EventID string `param:"event_id" validate:"required,max=128,excludesall=:"`
	SeatID  string `param:"seat_id" validate:"required,max=64"`
	Reason  string `query:"reason" validate:"omitempty,oneof=user_cancelled payment_failed"`
}

type listRequest struct {
	EventID string `param:"event_id" validate:"required,max=128,excludesall=:"`
	IDs     string `query:"ids"`
}

type lockResponse struct {
	EventID      string    `json:"event_id"`
	SeatID       string    `json:"seat_id"`
	HolderID     string    `json:"holder_id"`
	ExpiresAt    time.Time `json:"expires_at"`
	LeaseSeconds int64     `json:"lease_seconds"`
	Reacquired   bool      `json:"reacquired"`
}

type purchaseResponse struct {
	EventID  string     `json:"event_id"`
	HolderID string     `json:"holder_id"`
	Seat     venue.Seat `json:"seat"`
	SoldAt   time.Time  `json:"sold_at"`
}

type seatResponse struct {
	EventID string         `json:"event_id"`
	Seat    venue.Seat     `json:"seat"`
	State   model.SeatView `json:"state"`
}

type seatsResponse struct {
	EventID string                    `json:"event_id"`
	Seats   map[string]model.SeatView `json:"seats"`
}

type sectionResponse struct {
	venue.Section
	MinPrice int `json:"min_price"`
	MaxPrice int `json:"max_price"`
}

// bindValid binds path and query parameters into req and validates it.
func bindValid(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// Lock handles POST /v1/events/:event_id/seats/:seat_id/lock.  A new hold
// answers 201; a hold the caller already had answers 200 with its remaining
// lease.
func (h *SeatHandler) Lock(c echo.Context) error {
	var p seatPath
	if err := bindValid(c, &p); err != nil {
		return badRequest(c, err.Error())
	}
	lease, err := h.Locks.Acquire(c.Request().Context(), p.EventID, p.SeatID, middleware.HolderID(c))
	if err != nil {
		return writeError(c, err)
	}
	status := http.StatusCreated
	if lease.Reacquired {
		status = http.StatusOK
	}
	return c.JSON(status, lockResponse{
		EventID:      lease.EventID,
		SeatID:       lease.SeatID,
		HolderID:     lease.HolderID,
		ExpiresAt:    lease.ExpiresAt,
		LeaseSeconds: int64(time.Until(lease.ExpiresAt).Round(time.Second) / time.Second),
		Reacquired:   lease.Reacquired,
	})
}

// Release handles DELETE /v1/events/:event_id/seats/:seat_id/lock.
func (h *SeatHandler) Release(c echo.Context) error {
	var req releaseRequest
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	err := h.Locks.Release(c.Request().Context(), req.EventID, req.SeatID, middleware.HolderID(c), req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Purchase handles POST /v1/events/:event_id/seats/:seat_id/purchase.  It
// is called by the payment flow once the charge has gone through.
func (h *SeatHandler) Purchase(c echo.Context) error {
	var p seatPath
	if err := bindValid(c, &p); err != nil {
		return badRequest(c, err.Error())
	}
	sale, err := h.Locks.Promote(c.Request().Context(), p.EventID, p.SeatID, middleware.HolderID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, purchaseResponse{
		EventID:  sale.EventID,
		HolderID: sale.HolderID,
		Seat:     sale.Seat,
		SoldAt:   sale.SoldAt,
	})
}

// GetSeat handles GET /v1/events/:event_id/seats/:seat_id.
func (h *SeatHandler) GetSeat(c echo.Context) error {
	var p seatPath
	if err := bindValid(c, &p); err != nil {
		return badRequest(c, err.Error())
	}
	seat, err := h.Venue.Lookup(p.SeatID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown_seat", "message": err.Error()})
	}
	return c.JSON(http.StatusOK, seatResponse{
		EventID: p.EventID,
		Seat:    seat,
		State:   h.Status.GetOne(c.Request().Context(), p.EventID, p.SeatID),
	})
}

// ListSeats handles GET /v1/events/:event_id/seats.  Without ?ids it
// returns the whole venue; with ?ids=a,b only the named seats.  Either way
// it costs one store round trip.
func (h *SeatHandler) ListSeats(c echo.Context) error {
	var req listRequest
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()
	if strings.TrimSpace(req.IDs) == "" {
		return c.JSON(http.StatusOK, seatsResponse{EventID: req.EventID, Seats: h.Status.GetVenue(ctx, req.EventID)})
	}

	var ids []string
	for _, id := range strings.Split(req.IDs, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := h.Venue.Lookup(id); err != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown_seat", "message": err.Error()})
		}
		ids = append(ids, id)
	}
	if len(ids) > h.Venue.Capacity() {
		return badRequest(c, "too many seat ids")
	}
	return c.JSON(http.StatusOK, seatsResponse{EventID: req.EventID, Seats: h.Status.GetMany(ctx, req.EventID, ids)})
}

// VenueLayout handles GET /v1/venue.
func (h *SeatHandler) VenueLayout(c echo.Context) error {
	sections := h.Venue.Sections()
	out := make([]sectionResponse, len(sections))
	for i, s := range sections {
		lo, hi := s.PriceRange()
		out[i] = sectionResponse{Section: s, MinPrice: lo, MaxPrice: hi}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"capacity": h.Venue.Capacity(),
		"sections": out,
	})
}
