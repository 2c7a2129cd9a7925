package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-lock-engine/internal/queue"
	"github.com/iliyamo/seat-lock-engine/internal/repository"
	"github.com/iliyamo/seat-lock-engine/internal/venue"
)

type notification struct {
	kind    queue.EventKind
	payload any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) Emit(kind queue.EventKind, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{kind: kind, payload: payload})
}

func (r *recordingNotifier) all() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notification, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *recordingNotifier) count(kind queue.EventKind) int {
	n := 0
	for _, s := range r.all() {
		if s.kind == kind {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingStore counts lease store round trips.
type countingStore struct {
	*repository.RedisLeaseStore
	gets      atomic.Int64
	multiGets atomic.Int64
}

func (s *countingStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.gets.Add(1)
	return s.RedisLeaseStore.Get(ctx, key)
}

func (s *countingStore) MultiGet(ctx context.Context, keys []string) []repository.LeaseEntry {
	s.multiGets.Add(1)
	return s.RedisLeaseStore.MultiGet(ctx, keys)
}

type testEngine struct {
	mr       *miniredis.Miniredis
	store    *countingStore
	venue    *venue.Venue
	clock    *fakeClock
	notifier *recordingNotifier
	locks    *LockManager
	status   *StatusAggregator
}

func newTestEngine(t *testing.T, statusOpts ...StatusOption) *testEngine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	e := &testEngine{
		mr:       mr,
		store:    &countingStore{RedisLeaseStore: repository.NewRedisLeaseStore(rdb)},
		venue:    venue.Default(),
		clock:    &fakeClock{now: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)},
		notifier: &recordingNotifier{},
	}
	e.locks = NewLockManager(e.store, e.venue, e.notifier, WithClock(e.clock.Now))
	e.status = NewStatusAggregator(e.store, e.venue, statusOpts...)
	return e
}

// elapse moves both the store and the lock manager clock forward.
func (e *testEngine) elapse(d time.Duration) {
	e.mr.FastForward(d)
	e.clock.Advance(d)
}
