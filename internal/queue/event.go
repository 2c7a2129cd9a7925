// Package queue defines the seat state notifications published to the event
// bus and the publishers that deliver them.
package queue

// EventKind identifies a seat state transition.
type EventKind string

const (
	KindSeatLocked   EventKind = "seat_locked"
	KindSeatReleased EventKind = "seat_released"
	KindSeatSold     EventKind = "seat_sold"
)

// Release reasons carried by SeatReleasedEvent.  Lease expiry happens inside
// the lease store and is never published.
const (
	ReasonUserCancelled = "user_cancelled"
	ReasonPaymentFailed = "payment_failed"
	ReasonAdminReset    = "admin_reset"
)

// SeatLockedEvent is published when a client acquires a new hold on a seat.
// LeaseExpiry and Timestamp are unix milliseconds.
type SeatLockedEvent struct {
	EventID     string `json:"event_id"`
	SeatID      string `json:"seat_id"`
	HolderID    string `json:"holder_id"`
	LeaseExpiry int64  `json:"lease_expiry"`
	Timestamp   int64  `json:"timestamp"`
}

// SeatReleasedEvent is published when a holder (or an operator) gives a
// seat back before its lease lapses.
type SeatReleasedEvent struct {
	EventID   string `json:"event_id"`
	SeatID    string `json:"seat_id"`
	HolderID  string `json:"holder_id"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// SeatSoldEvent is published when a hold is promoted to a sale.  It carries
// enough for the catalog to record the ticket without calling back.
type SeatSoldEvent struct {
	EventID    string `json:"event_id"`
	SeatID     string `json:"seat_id"`
	HolderID   string `json:"holder_id"`
	Price      int    `json:"price"`
	Section    string `json:"section"`
	Row        string `json:"row"`
	SeatNumber int    `json:"seat_number"`
	Timestamp  int64  `json:"timestamp"`
}

// PartitionKey is the bus key for a seat; transports that order per key keep
// the notifications of one seat in order.
func PartitionKey(eventID, seatID string) string {
	return eventID + "-" + seatID
}

func (e SeatLockedEvent) PartitionKey() string   { return PartitionKey(e.EventID, e.SeatID) }
func (e SeatReleasedEvent) PartitionKey() string { return PartitionKey(e.EventID, e.SeatID) }
func (e SeatSoldEvent) PartitionKey() string     { return PartitionKey(e.EventID, e.SeatID) }
