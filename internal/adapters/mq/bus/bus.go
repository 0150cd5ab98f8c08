// Package bus carries sensor and motion payloads between publishers and the
// ingestion bridge. Two drivers exist: an in-process queue and MQTT.
package bus

import (
	"context"
	"errors"

	"github.com/okian/smartart/internal/adapters/mq/worker"
)

// Sentinel errors shared by bus drivers.
var (
	ErrClosed            = errors.New("bus closed")
	ErrAlreadySubscribed = errors.New("bus already subscribed")
	ErrNoTopics          = errors.New("no topics to subscribe")
	ErrConnectTimeout    = errors.New("bus connect timed out")
	ErrPublishTimeout    = errors.New("bus publish timed out")
)

// Bus is a topic-addressed publish/subscribe transport.
type Bus interface {
	// Publish hands payload to the transport. It returns once the transport accepted it.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe delivers messages on topics to h until Close. Messages on one
	// topic reach h in arrival order.
	Subscribe(ctx context.Context, h worker.Handler, topics ...string) error

	// Close stops delivery and releases the transport.
	Close(ctx context.Context) error
}
