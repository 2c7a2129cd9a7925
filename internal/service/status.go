package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-lock-engine/internal/metrics"
	"github.com/iliyamo/seat-lock-engine/internal/model"
	"github.com/iliyamo/seat-lock-engine/internal/repository"
	"github.com/iliyamo/seat-lock-engine/internal/venue"
)

// FailMode selects what the status aggregator reports for seats it cannot
// read from the lease store.
type FailMode string

const (
	// FailOpen reports unreadable seats as available.  This keeps the seat
	// map usable during store trouble at the price of showing seats that may
	// be held; acquisition itself always fails closed.
	FailOpen FailMode = "open"
	// FailUnknown reports unreadable seats with the distinct unknown status.
	FailUnknown FailMode = "unknown"
)

// ParseFailMode accepts "open" and "unknown"; anything else is an error.
func ParseFailMode(s string) (FailMode, error) {
	switch FailMode(s) {
	case FailOpen, FailUnknown:
		return FailMode(s), nil
	case "":
		return FailOpen, nil
	}
	return "", fmt.Errorf("unknown status fail mode %q", s)
}

// StatusAggregator answers seat status reads.  Every call costs exactly one
// lease store round trip however many seats are asked for.  It never writes.
type StatusAggregator struct {
	store    repository.LeaseStore
	venue    *venue.Venue
	prefix   string
	failMode FailMode
	log      *zap.Logger
}

// StatusOption configures a StatusAggregator.
type StatusOption func(*StatusAggregator)

func WithFailMode(mode FailMode) StatusOption {
	return func(a *StatusAggregator) { a.failMode = mode }
}

func WithStatusKeyPrefix(prefix string) StatusOption {
	return func(a *StatusAggregator) { a.prefix = prefix }
}

func WithStatusLogger(log *zap.Logger) StatusOption {
	return func(a *StatusAggregator) { a.log = log }
}

// NewStatusAggregator wires a status aggregator.
func NewStatusAggregator(store repository.LeaseStore, v *venue.Venue, opts ...StatusOption) *StatusAggregator {
	if store == nil || v == nil {
		panic("nil dependency passed to NewStatusAggregator")
	}
	a := &StatusAggregator{
		store:    store,
		venue:    v,
		prefix:   repository.DefaultLockKeyPrefix,
		failMode: FailOpen,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetOne returns the status of a single seat.  It goes through the batched
// path so that it always agrees with GetMany.
func (a *StatusAggregator) GetOne(ctx context.Context, eventID, seatID string) model.SeatView {
	return a.GetMany(ctx, eventID, []string{seatID})[seatID]
}

// GetMany returns the status of every requested seat.  Seats without a
// record are available.  Duplicated ids are read once.
func (a *StatusAggregator) GetMany(ctx context.Context, eventID string, seatIDs []string) map[string]model.SeatView {
	ids := dedupe(seatIDs)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = repository.SeatLockKey(a.prefix, eventID, id)
	}
	metrics.StatusBatchSize.Observe(float64(len(ids)))

	entries := a.store.MultiGet(ctx, keys)
	out := make(map[string]model.SeatView, len(ids))
	degraded := 0
	var firstErr error
	for i, id := range ids {
		view, err := toView(entries[i])
		if err != nil {
			degraded++
			if firstErr == nil {
				firstErr = err
			}
			view = a.degradedView()
		}
		out[id] = view
	}
	if degraded > 0 {
		metrics.StatusDegraded.Add(float64(degraded))
		a.log.Warn("seat status degraded",
			zap.String("event_id", eventID),
			zap.Int("seats", degraded),
			zap.String("fail_mode", string(a.failMode)),
			zap.Error(firstErr),
		)
	}
	return out
}

// GetVenue returns the status of every seat in the venue.
func (a *StatusAggregator) GetVenue(ctx context.Context, eventID string) map[string]model.SeatView {
	return a.GetMany(ctx, eventID, a.venue.SeatIDs())
}

func (a *StatusAggregator) degradedView() model.SeatView {
	if a.failMode == FailUnknown {
		return model.SeatView{Status: model.SeatUnknown}
	}
	return model.SeatView{Status: model.SeatAvailable}
}

func toView(e repository.LeaseEntry) (model.SeatView, error) {
	if e.Err != nil {
		return model.SeatView{}, e.Err
	}
	if !e.Found {
		return model.SeatView{Status: model.SeatAvailable}, nil
	}
	rec, err := model.DecodeSeatRecord(e.Value)
	if err != nil {
		return model.SeatView{}, fmt.Errorf("%w: %s: %v", repository.ErrCorruptRecord, e.Key, err)
	}
	if rec.Status == model.SeatSold {
		return model.SeatView{Status: model.SeatSold, Holder: rec.Holder}, nil
	}
	// GET and PTTL are separate commands; a lease that lapsed between them
	// reads as a locked record without a ttl.
	if e.TTL <= 0 {
		return model.SeatView{Status: model.SeatAvailable}, nil
	}
	return model.SeatView{
		Status:     model.SeatLocked,
		Holder:     rec.Holder,
		TTLSeconds: int64((e.TTL + time.Second - 1) / time.Second),
	}, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
