package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-lock-engine/internal/metrics"
	"github.com/iliyamo/seat-lock-engine/internal/model"
	"github.com/iliyamo/seat-lock-engine/internal/queue"
	"github.com/iliyamo/seat-lock-engine/internal/repository"
	"github.com/iliyamo/seat-lock-engine/internal/venue"
)

// DefaultLeaseDuration is how long an unconfirmed hold lives.
const DefaultLeaseDuration = 600 * time.Second

// maxAcquireAttempts bounds the retries when a competing lease lapses between
// the failed create and the follow-up read.
const maxAcquireAttempts = 3

// Notifier receives seat state notifications.  Emit must not block.
type Notifier interface {
	Emit(kind queue.EventKind, payload any)
}

type noopNotifier struct{}

func (noopNotifier) Emit(queue.EventKind, any) {}

// Lease describes a hold granted by Acquire.
type Lease struct {
	EventID   string
	SeatID    string
	HolderID  string
	ExpiresAt time.Time
	// Reacquired is true when the caller already held the seat; ExpiresAt
	// then reflects the live remaining lease, which is never extended.
	Reacquired bool
}

// Sale describes a hold promoted to a purchase.
type Sale struct {
	EventID  string
	HolderID string
	Seat     venue.Seat
	SoldAt   time.Time
}

// LockManager arbitrates seat holds.  It keeps no state of its own: the lease
// store's create-if-absent is the only point of mutual exclusion, so any
// number of LockManagers in any number of processes may share one store.
type LockManager struct {
	store  repository.LeaseStore
	venue  *venue.Venue
	notify Notifier
	lease  time.Duration
	prefix string
	now    func() time.Time
	log    *zap.Logger
}

// LockOption configures a LockManager.
type LockOption func(*LockManager)

// WithLeaseDuration overrides DefaultLeaseDuration.
func WithLeaseDuration(d time.Duration) LockOption {
	return func(m *LockManager) {
		if d > 0 {
			m.lease = d
		}
	}
}

// WithKeyPrefix namespaces the lease store keys.
func WithKeyPrefix(prefix string) LockOption {
	return func(m *LockManager) { m.prefix = prefix }
}

// WithClock injects the time source used for lease expiry timestamps.
func WithClock(now func() time.Time) LockOption {
	return func(m *LockManager) { m.now = now }
}

func WithLogger(log *zap.Logger) LockOption {
	return func(m *LockManager) { m.log = log }
}

// NewLockManager wires a lock manager.  notify may be nil.
func NewLockManager(store repository.LeaseStore, v *venue.Venue, notify Notifier, opts ...LockOption) *LockManager {
	if store == nil || v == nil {
		panic("nil dependency passed to NewLockManager")
	}
	if notify == nil {
		notify = noopNotifier{}
	}
	m := &LockManager{
		store:  store,
		venue:  v,
		notify: notify,
		lease:  DefaultLeaseDuration,
		prefix: repository.DefaultLockKeyPrefix,
		now:    func() time.Time { return time.Now().UTC() },
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LeaseDuration is the lifetime of a new hold.
func (m *LockManager) LeaseDuration() time.Duration { return m.lease }

// Acquire places a hold on a seat for holderID.  Exactly one of any number
// of concurrent callers for a free seat is granted a new lease.  A caller
// that already holds the seat is granted again with its remaining lease.
func (m *LockManager) Acquire(ctx context.Context, eventID, seatID, holderID string) (lease Lease, err error) {
	defer func() { m.observe("acquire", lease.Reacquired, err) }()

	if err := validateIDs(eventID, holderID); err != nil {
		return Lease{}, err
	}
	if _, err := m.resolveSeat(seatID); err != nil {
		return Lease{}, err
	}
	key := repository.SeatLockKey(m.prefix, eventID, seatID)

	// Reported if every attempt loses to a lease that lapses under it.
	lastErr := ErrHeldByOther
	for attempt := 0; attempt < maxAcquireAttempts; attempt++ {
		now := m.now()
		raw, err := model.NewLockRecord(holderID, now).Encode()
		if err != nil {
			return Lease{}, err
		}
		created, err := m.store.CreateIfAbsent(ctx, key, raw, m.lease)
		if err != nil {
			return Lease{}, m.storeFailure("acquire", key, err)
		}
		if created {
			expiresAt := now.Add(m.lease)
			m.notify.Emit(queue.KindSeatLocked, queue.SeatLockedEvent{
				EventID:     eventID,
				SeatID:      seatID,
				HolderID:    holderID,
				LeaseExpiry: expiresAt.UnixMilli(),
				Timestamp:   now.UnixMilli(),
			})
			return Lease{EventID: eventID, SeatID: seatID, HolderID: holderID, ExpiresAt: expiresAt}, nil
		}

		cur, _, found, err := m.load(ctx, key)
		if err != nil {
			return Lease{}, m.storeFailure("acquire", key, err)
		}
		if !found {
			continue
		}
		if cur.Status == model.SeatSold {
			return Lease{}, ErrAlreadySold
		}
		if cur.Holder != holderID {
			return Lease{}, ErrHeldByOther
		}
		ttl, err := m.store.TTL(ctx, key)
		if err != nil {
			return Lease{}, m.storeFailure("acquire", key, err)
		}
		if ttl <= 0 {
			// Either the lease lapsed after the read or the record has no
			// lease at all; the latter cannot heal by retrying.
			lastErr = fmt.Errorf("%w: seat %s is locked without a lease", ErrStoreUnavailable, seatID)
			continue
		}
		return Lease{
			EventID:    eventID,
			SeatID:     seatID,
			HolderID:   holderID,
			ExpiresAt:  m.now().Add(ttl),
			Reacquired: true,
		}, nil
	}
	return Lease{}, lastErr
}

// Release gives a held seat back.  Only the current holder may release;
// a sold seat cannot be released.  reason defaults to user_cancelled.
func (m *LockManager) Release(ctx context.Context, eventID, seatID, holderID, reason string) (err error) {
	defer func() { m.observe("release", false, err) }()

	if err := validateIDs(eventID, holderID); err != nil {
		return err
	}
	switch reason {
	case "":
		reason = queue.ReasonUserCancelled
	case queue.ReasonUserCancelled, queue.ReasonPaymentFailed:
	default:
		return fmt.Errorf("%w: release reason %q", ErrInvalidInput, reason)
	}
	if _, err := m.resolveSeat(seatID); err != nil {
		return err
	}
	key := repository.SeatLockKey(m.prefix, eventID, seatID)

	cur, raw, found, err := m.load(ctx, key)
	if err != nil {
		return m.storeFailure("release", key, err)
	}
	switch {
	case !found:
		return ErrNotOwner
	case cur.Status == model.SeatSold:
		return fmt.Errorf("%w: %w", ErrNotOwner, ErrAlreadySold)
	case cur.Holder != holderID:
		return ErrNotOwner
	}
	deleted, err := m.store.CompareAndDelete(ctx, key, raw)
	if err != nil {
		return m.storeFailure("release", key, err)
	}
	if !deleted {
		// The lease lapsed or the record changed after it was read.
		return ErrNotOwner
	}
	m.notify.Emit(queue.KindSeatReleased, queue.SeatReleasedEvent{
		EventID:   eventID,
		SeatID:    seatID,
		HolderID:  holderID,
		Reason:    reason,
		Timestamp: m.now().UnixMilli(),
	})
	return nil
}

// Promote turns the caller's live hold into a permanent sale.  The lease is
// dropped and the record can no longer change through this interface.
func (m *LockManager) Promote(ctx context.Context, eventID, seatID, holderID string) (sale Sale, err error) {
	defer func() { m.observe("promote", false, err) }()

	if err := validateIDs(eventID, holderID); err != nil {
		return Sale{}, err
	}
	seat, err := m.resolveSeat(seatID)
	if err != nil {
		return Sale{}, err
	}
	key := repository.SeatLockKey(m.prefix, eventID, seatID)

	cur, raw, found, err := m.load(ctx, key)
	if err != nil {
		return Sale{}, m.storeFailure("promote", key, err)
	}
	switch {
	case !found:
		return Sale{}, ErrLockNotOwned
	case cur.Status == model.SeatSold:
		return Sale{}, fmt.Errorf("%w: %w", ErrLockNotOwned, ErrAlreadySold)
	case cur.Holder != holderID:
		return Sale{}, ErrLockNotOwned
	}
	soldAt := m.now()
	sold, err := cur.Sold(soldAt).Encode()
	if err != nil {
		return Sale{}, err
	}
	swapped, err := m.store.CompareAndPersist(ctx, key, raw, sold)
	if err != nil {
		return Sale{}, m.storeFailure("promote", key, err)
	}
	if !swapped {
		return Sale{}, ErrLockNotOwned
	}
	m.notify.Emit(queue.KindSeatSold, queue.SeatSoldEvent{
		EventID:    eventID,
		SeatID:     seatID,
		HolderID:   holderID,
		Price:      seat.Price,
		Section:    seat.Section,
		Row:        seat.Row,
		SeatNumber: seat.Number,
		Timestamp:  soldAt.UnixMilli(),
	})
	return Sale{EventID: eventID, HolderID: holderID, Seat: seat, SoldAt: soldAt}, nil
}

// Reset is the administrative purge: it clears a seat whatever its state,
// sold seats included.  Resetting an available seat is a no-op.
func (m *LockManager) Reset(ctx context.Context, eventID, seatID string) (err error) {
	defer func() { m.observe("reset", false, err) }()

	if err := validateIDs(eventID, "admin"); err != nil {
		return err
	}
	if _, err := m.resolveSeat(seatID); err != nil {
		return err
	}
	key := repository.SeatLockKey(m.prefix, eventID, seatID)

	for attempt := 0; attempt < maxAcquireAttempts; attempt++ {
		raw, found, err := m.store.Get(ctx, key)
		if err != nil {
			return m.storeFailure("reset", key, err)
		}
		if !found {
			return nil
		}
		deleted, err := m.store.CompareAndDelete(ctx, key, raw)
		if err != nil {
			return m.storeFailure("reset", key, err)
		}
		if !deleted {
			continue
		}
		holder := ""
		if rec, decErr := model.DecodeSeatRecord(raw); decErr == nil {
			holder = rec.Holder
		}
		m.log.Info("seat reset", zap.String("event_id", eventID), zap.String("seat_id", seatID), zap.String("holder_id", holder))
		m.notify.Emit(queue.KindSeatReleased, queue.SeatReleasedEvent{
			EventID:   eventID,
			SeatID:    seatID,
			HolderID:  holder,
			Reason:    queue.ReasonAdminReset,
			Timestamp: m.now().UnixMilli(),
		})
		return nil
	}
	return fmt.Errorf("%w: seat %s kept changing during reset", ErrStoreUnavailable, seatID)
}

// load reads and decodes the record of key.  raw is the exact stored value
// for later compare-and-swap calls.
func (m *LockManager) load(ctx context.Context, key string) (rec model.SeatRecord, raw string, found bool, err error) {
	raw, found, err = m.store.Get(ctx, key)
	if err != nil || !found {
		return model.SeatRecord{}, "", found, err
	}
	rec, err = model.DecodeSeatRecord(raw)
	if err != nil {
		return model.SeatRecord{}, "", false, fmt.Errorf("%w: %v", repository.ErrCorruptRecord, err)
	}
	return rec, raw, true, nil
}

func (m *LockManager) resolveSeat(seatID string) (venue.Seat, error) {
	seat, err := m.venue.Lookup(seatID)
	if errors.Is(err, venue.ErrInvalidSeatID) {
		return venue.Seat{}, fmt.Errorf("%w: %w", ErrUnknownSeat, err)
	}
	return seat, err
}

func (m *LockManager) storeFailure(op, key string, err error) error {
	m.log.Warn("lease store failure", zap.String("op", op), zap.String("key", key), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func (m *LockManager) observe(op string, reacquired bool, err error) {
	metrics.LockOperations.WithLabelValues(op, outcome(reacquired, err)).Inc()
}

func outcome(reacquired bool, err error) string {
	switch {
	case err == nil && reacquired:
		return "reacquired"
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrAlreadySold):
		return "already_sold"
	case errors.Is(err, ErrHeldByOther):
		return "held_by_other"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrLockNotOwned):
		return "lock_not_owned"
	case errors.Is(err, ErrUnknownSeat):
		return "unknown_seat"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}

func validateIDs(eventID, holderID string) error {
	if eventID == "" || strings.Contains(eventID, ":") {
		return fmt.Errorf("%w: event id %q", ErrInvalidInput, eventID)
	}
	if holderID == "" {
		return fmt.Errorf("%w: empty holder id", ErrInvalidInput)
	}
	return nil
}
