package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-lock-engine/internal/metrics"
	"github.com/iliyamo/seat-lock-engine/internal/queue"
)

// Topics maps notification kinds to event bus topics.
type Topics struct {
	Locked   string
	Released string
	Sold     string
}

// DefaultTopics are the topic names the downstream consumers subscribe to.
func DefaultTopics() Topics {
	return Topics{Locked: "seat_locked", Released: "seat_released", Sold: "ticket_sold"}
}

// EmitterConfig sizes the emitter.  Zero values fall back to defaults.
type EmitterConfig struct {
	BufferSize     int
	Workers        int
	PublishTimeout time.Duration
	Topics         Topics
}

const (
	defaultEmitterBuffer  = 1024
	defaultEmitterWorkers = 4
	defaultPublishTimeout = 5 * time.Second
)

type envelope struct {
	topic string
	key   string
	body  []byte
}

// EventEmitter hands notifications to the event bus off the decision path.
// Emit only enqueues; a fixed pool of workers publishes.  Delivery is best
// effort: when the buffer is full or the publisher fails, the notification
// is logged and dropped, and the caller never finds out.
type EventEmitter struct {
	pub     queue.Publisher
	topics  Topics
	timeout time.Duration
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
	buf    chan envelope
	wg     sync.WaitGroup
}

// NewEventEmitter starts the worker pool.  Call Close to drain it.
func NewEventEmitter(pub queue.Publisher, cfg EmitterConfig, log *zap.Logger) *EventEmitter {
	if pub == nil {
		panic("nil publisher passed to NewEventEmitter")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultEmitterBuffer
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultEmitterWorkers
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	def := DefaultTopics()
	if cfg.Topics.Locked == "" {
		cfg.Topics.Locked = def.Locked
	}
	if cfg.Topics.Released == "" {
		cfg.Topics.Released = def.Released
	}
	if cfg.Topics.Sold == "" {
		cfg.Topics.Sold = def.Sold
	}
	if log == nil {
		log = zap.NewNop()
	}
	e := &EventEmitter{
		pub:     pub,
		topics:  cfg.Topics,
		timeout: cfg.PublishTimeout,
		log:     log,
		buf:     make(chan envelope, cfg.BufferSize),
	}
	e.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go e.worker()
	}
	return e
}

// Emit queues a notification.  It never blocks and never fails; payloads
// that carry a partition key are keyed by it.
func (e *EventEmitter) Emit(kind queue.EventKind, payload any) {
	topic := e.topic(kind)
	if topic == "" {
		e.log.Error("dropping notification of unknown kind", zap.String("kind", string(kind)))
		metrics.EventsDropped.Inc()
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		e.log.Error("dropping unencodable notification", zap.String("topic", topic), zap.Error(err))
		metrics.EventsDropped.Inc()
		return
	}
	var key string
	if k, ok := payload.(interface{ PartitionKey() string }); ok {
		key = k.PartitionKey()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.log.Warn("emitter closed, notification dropped", zap.String("topic", topic), zap.String("key", key))
		metrics.EventsDropped.Inc()
		return
	}
	select {
	case e.buf <- envelope{topic: topic, key: key, body: body}:
	default:
		e.log.Warn("emitter buffer full, notification dropped", zap.String("topic", topic), zap.String("key", key))
		metrics.EventsDropped.Inc()
	}
}

func (e *EventEmitter) topic(kind queue.EventKind) string {
	switch kind {
	case queue.KindSeatLocked:
		return e.topics.Locked
	case queue.KindSeatReleased:
		return e.topics.Released
	case queue.KindSeatSold:
		return e.topics.Sold
	}
	return ""
}

func (e *EventEmitter) worker() {
	defer e.wg.Done()
	for env := range e.buf {
		if err := e.publish(env); err != nil {
			e.log.Warn("notification delivery failed",
				zap.String("topic", env.topic),
				zap.String("key", env.key),
				zap.Error(err),
			)
			metrics.Events.WithLabelValues(env.topic, "failed").Inc()
			continue
		}
		metrics.Events.WithLabelValues(env.topic, "published").Inc()
	}
}

func (e *EventEmitter) publish(env envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("publisher panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	return e.pub.Publish(ctx, env.topic, env.key, env.body)
}

// Close stops accepting notifications and waits for the queued ones to be
// attempted, or for ctx to end.  It does not close the publisher.
func (e *EventEmitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.buf)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
