package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/smartart/internal/adapters/mq/queue"
	"github.com/okian/smartart/internal/adapters/mq/worker"
	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/pkg/logger"
)

// MemoryBus is an in-process Bus backed by a bounded queue and a worker pool.
type MemoryBus struct {
	queue   *queue.InMemoryQueue
	workers int
	logger  logger.Logger
	now     func() time.Time

	mu     sync.Mutex
	pool   *worker.Pool
	closed bool
}

var _ Bus = (*MemoryBus)(nil)

// MemoryOption configures a MemoryBus.
type MemoryOption func(*MemoryBus)

// WithWorkers sets the number of delivery goroutines. One keeps global arrival order.
func WithWorkers(n int) MemoryOption {
	return func(b *MemoryBus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithMemoryLogger sets the logger.
func WithMemoryLogger(l logger.Logger) MemoryOption {
	return func(b *MemoryBus) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewMemoryBus creates a MemoryBus over q.
func NewMemoryBus(q *queue.InMemoryQueue, opts ...MemoryOption) *MemoryBus {
	b := &MemoryBus{
		queue:   q,
		workers: 1,
		logger:  logger.Get().Named("bus"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish enqueues a copy of payload.
func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	body := append([]byte(nil), payload...)
	if err := b.queue.Enqueue(ctx, model.NewMessage(topic, body, b.now())); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts the worker pool. Messages on other topics are dropped.
// Delivery outlives ctx; only Close stops it, after the queue drains.
func (b *MemoryBus) Subscribe(ctx context.Context, h worker.Handler, topics ...string) error {
	if len(topics) == 0 {
		return ErrNoTopics
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.pool != nil {
		return ErrAlreadySubscribed
	}

	wanted := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		wanted[t] = struct{}{}
	}
	filter := worker.HandlerFunc(func(ctx context.Context, m model.Message) error {
		if _, ok := wanted[m.Topic]; !ok {
			b.logger.Debug(ctx, "dropping message on unsubscribed topic", logger.String("topic", m.Topic))
			return nil
		}
		return h.Handle(ctx, m)
	})

	b.pool = worker.NewPool(b.workers, b.queue, filter, worker.WithLogger(b.logger))
	b.pool.Start(context.WithoutCancel(ctx))
	b.logger.Info(ctx, "memory bus subscribed", logger.Any("topics", topics), logger.Int("workers", b.workers))
	return nil
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (b *MemoryBus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pool := b.pool
	b.mu.Unlock()

	if err := b.queue.Close(); err != nil {
		return err
	}
	if pool == nil {
		return nil
	}
	return pool.Wait(ctx)
}

// Backlog returns the number of undelivered messages.
func (b *MemoryBus) Backlog() int { return b.queue.Len() }
