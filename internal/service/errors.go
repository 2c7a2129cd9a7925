// Package service implements the seat lock engine: the lock manager that
// arbitrates holds and sales, the status aggregator that answers polling
// clients and the emitter that notifies the event bus.
package service

import (
	"errors"

	"github.com/iliyamo/seat-lock-engine/internal/venue"
)

// Sentinel errors returned by the lock manager.  Handlers map them to HTTP
// statuses with errors.Is.
var (
	// ErrAlreadySold is terminal: the seat has been bought and can never be
	// held again.
	ErrAlreadySold = errors.New("seat already sold")
	// ErrHeldByOther means another client holds a live lease; the seat may
	// become available when that lease lapses.
	ErrHeldByOther = errors.New("seat held by another client")
	// ErrNotOwner is returned by Release when the caller does not hold the
	// seat, including when nobody does.
	ErrNotOwner = errors.New("seat lock not owned by caller")
	// ErrLockNotOwned is returned by Promote without a live lock held by
	// the caller.
	ErrLockNotOwned = errors.New("no live seat lock owned by caller")
	// ErrStoreUnavailable wraps lease store failures.  Mutating calls fail
	// closed with it.
	ErrStoreUnavailable = errors.New("lease store unavailable")
	// ErrInvalidInput rejects empty identifiers and event ids that would
	// break the key layout.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownSeat is returned for seat ids outside the venue layout.
	ErrUnknownSeat = venue.ErrUnknownSeat
)
