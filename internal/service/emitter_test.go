package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/seat-lock-engine/internal/queue"
)

type published struct {
	topic string
	key   string
	body  []byte
}

type fakePublisher struct {
	mu    sync.Mutex
	msgs  []published
	err   error
	panic bool
	gate  chan struct{}
}

func (p *fakePublisher) Publish(ctx context.Context, topic, key string, body []byte) error {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.panic {
		panic("broker exploded")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, key: key, body: body})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) sent() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]published, len(p.msgs))
	copy(out, p.msgs)
	return out
}

func TestEmitterPublishesToTopics(t *testing.T) {
	pub := &fakePublisher{}
	em := NewEventEmitter(pub, EmitterConfig{Workers: 1}, nil)

	em.Emit(queue.KindSeatLocked, queue.SeatLockedEvent{EventID: "e1", SeatID: "vip-A-1", HolderID: "u1", LeaseExpiry: 2, Timestamp: 1})
	em.Emit(queue.KindSeatReleased, queue.SeatReleasedEvent{EventID: "e1", SeatID: "vip-A-1", HolderID: "u1", Reason: queue.ReasonUserCancelled})
	em.Emit(queue.KindSeatSold, queue.SeatSoldEvent{EventID: "e1", SeatID: "vip-A-2", HolderID: "u2", Price: 600})

	require.NoError(t, em.Close(context.Background()))

	msgs := pub.sent()
	require.Len(t, msgs, 3)
	assert.Equal(t, "seat_locked", msgs[0].topic)
	assert.Equal(t, "seat_released", msgs[1].topic)
	assert.Equal(t, "ticket_sold", msgs[2].topic)
	assert.Equal(t, "e1-vip-A-1", msgs[0].key)
	assert.Equal(t, "e1-vip-A-2", msgs[2].key)

	var locked map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].body, &locked))
	assert.Equal(t, "u1", locked["holder_id"])
	assert.EqualValues(t, 2, locked["lease_expiry"])
}

func TestEmitterCustomTopics(t *testing.T) {
	pub := &fakePublisher{}
	em := NewEventEmitter(pub, EmitterConfig{Topics: Topics{Sold: "sales"}}, nil)

	em.Emit(queue.KindSeatSold, queue.SeatSoldEvent{EventID: "e1", SeatID: "vip-A-2"})
	em.Emit(queue.KindSeatLocked, queue.SeatLockedEvent{EventID: "e1", SeatID: "vip-A-3"})
	require.NoError(t, em.Close(context.Background()))

	topics := map[string]bool{}
	for _, m := range pub.sent() {
		topics[m.topic] = true
	}
	assert.Equal(t, map[string]bool{"sales": true, "seat_locked": true}, topics)
}

func TestEmitterSwallowsPublisherFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &fakePublisher{err: errors.New("broker down")}
	em := NewEventEmitter(pub, EmitterConfig{Workers: 2}, zap.New(core))

	em.Emit(queue.KindSeatLocked, queue.SeatLockedEvent{EventID: "e1", SeatID: "vip-A-1"})
	require.NoError(t, em.Close(context.Background()))

	assert.Empty(t, pub.sent())
	assert.Equal(t, 1, logs.FilterMessage("notification delivery failed").Len())
}

func TestEmitterRecoversPublisherPanic(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	em := NewEventEmitter(&fakePublisher{panic: true}, EmitterConfig{Workers: 1}, zap.New(core))

	em.Emit(queue.KindSeatLocked, queue.SeatLockedEvent{EventID: "e1", SeatID: "vip-A-1"})
	em.Emit(queue.KindSeatLocked, queue.SeatLockedEvent{EventID: "e1", SeatID: "vip-A-2"})
	require.NoError(t, em.Close(context.Background()))

	assert.Equal(t, 2, logs.FilterMessage("notification delivery failed").Len())
}

func TestEmitNeverBlocks(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &fakePublisher{gate: make(chan struct{})}
	em := NewEventEmitter(pub, EmitterConfig{BufferSize: 2, Workers: 1}, zap.New(core))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			em.Emit(queue.KindSeatLocked, queue.SeatLockedEvent{EventID: "e1", SeatID: "vip-A-1"})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a stalled publisher")
	}

	close(pub.gate)
	require.NoError(t, em.Close(context.Background()))

	delivered := len(pub.sent())
	assert.GreaterOrEqual(t, delivered, 1)
	assert.LessOrEqual(t, delivered, 3)
	assert.Equal(t, 100-delivered, logs.FilterMessage("emitter buffer full, notification dropped").Len())
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &fakePublisher{}
	em := NewEventEmitter(pub, EmitterConfig{}, zap.New(core))
	require.NoError(t, em.Close(context.Background()))
	require.NoError(t, em.Close(context.Background()), "close is idempotent")

	assert.NotPanics(t, func() {
		em.Emit(queue.KindSeatLocked, queue.SeatLockedEvent{EventID: "e1", SeatID: "vip-A-1"})
	})
	assert.Empty(t, pub.sent())
	assert.Equal(t, 1, logs.FilterMessage("emitter closed, notification dropped").Len())
}

func TestEmitUnknownKindIsDropped(t *testing.T) {
	pub := &fakePublisher{}
	em := NewEventEmitter(pub, EmitterConfig{}, nil)
	em.Emit("seat_teleported", struct{}{})
	require.NoError(t, em.Close(context.Background()))
	assert.Empty(t, pub.sent())
}

func TestCloseHonoursDeadline(t *testing.T) {
	pub := &fakePublisher{gate: make(chan struct{})}
	em := NewEventEmitter(pub, EmitterConfig{Workers: 1, PublishTimeout: time.Minute}, nil)
	em.Emit(queue.KindSeatLocked, queue.SeatLockedEvent{EventID: "e1", SeatID: "vip-A-1"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, em.Close(ctx), context.DeadlineExceeded)
	close(pub.gate)
}

func TestLockManagerFeedsEmitter(t *testing.T) {
	e := newTestEngine(t)
	pub := &fakePublisher{}
	em := NewEventEmitter(pub, EmitterConfig{}, nil)
	locks := NewLockManager(e.store, e.venue, em)
	ctx := context.Background()

	_, err := locks.Acquire(ctx, testEvent, "premium-A-1", "u1")
	require.NoError(t, err)
	_, err = locks.Promote(ctx, testEvent, "premium-A-1", "u1")
	require.NoError(t, err)
	require.NoError(t, em.Close(ctx))

	msgs := pub.sent()
	require.Len(t, msgs, 2)
	topics := []string{msgs[0].topic, msgs[1].topic}
	assert.ElementsMatch(t, []string{"seat_locked", "ticket_sold"}, topics)

	var sold queue.SeatSoldEvent
	for _, m := range msgs {
		if m.topic == "ticket_sold" {
			require.NoError(t, json.Unmarshal(m.body, &sold))
		}
	}
	assert.Equal(t, 420, sold.Price)
	assert.Equal(t, "premium", sold.Section)
}
