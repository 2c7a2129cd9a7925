package queue

import (
	"context"
	"errors"
)

// Publisher delivers one encoded notification to the event bus.  Callers
// treat delivery as fire-and-forget; a returned error is only logged.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, body []byte) error
	Close() error
}

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")
