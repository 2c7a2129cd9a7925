package queue

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes notifications to the log instead of a broker.  It is
// the default when no event bus is configured.
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher returns a publisher that logs at debug level.
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key string, body []byte) error {
	p.log.Debug("event bus disabled, notification logged",
		zap.String("topic", topic),
		zap.String("key", key),
		zap.ByteString("body", body),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
