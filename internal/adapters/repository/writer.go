package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/pkg/logger"
	"github.com/okian/smartart/pkg/metrics"
)

// AsyncWriter appends records to a Store on a single goroutine so callers
// never wait on the store. Append order equals Write order. Failures are
// logged and counted, never returned.
type AsyncWriter struct {
	store  Store
	logger logger.Logger

	writeTimeout   time.Duration
	enqueueTimeout time.Duration

	ch   chan model.PersistedRecord
	done chan struct{}

	mu     sync.RWMutex
	closed bool

	statsMu sync.Mutex
	written uint64
	failed  uint64
	dropped uint64
}

// WriterStats counts AsyncWriter outcomes.
type WriterStats struct {
	Written uint64 `json:"written"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
	Backlog int    `json:"backlog"`
}

// NewAsyncWriter starts the writer goroutine.
func NewAsyncWriter(store Store, opts ...Option) *AsyncWriter {
	o := defaultOptions("store-writer")
	for _, opt := range opts {
		opt(&o)
	}
	w := &AsyncWriter{
		store:          store,
		logger:         o.logger,
		writeTimeout:   o.writeTimeout,
		enqueueTimeout: o.enqueueTimeout,
		ch:             make(chan model.PersistedRecord, o.bufferSize),
		done:           make(chan struct{}),
	}
	go w.run()
	return w
}

// Write queues rec. When the backlog stays full past the enqueue timeout the
// record is dropped and reported as a store write failure.
func (w *AsyncWriter) Write(ctx context.Context, rec model.PersistedRecord) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.drop(ctx, rec, "closed", ErrClosed)
		return
	}

	select {
	case w.ch <- rec:
		metrics.UpdateWriterBacklog(len(w.ch))
		return
	default:
	}
	if w.enqueueTimeout == 0 {
		w.drop(ctx, rec, "backlog_full", errors.New("backlog full"))
		return
	}

	timer := time.NewTimer(w.enqueueTimeout)
	defer timer.Stop()
	select {
	case w.ch <- rec:
		metrics.UpdateWriterBacklog(len(w.ch))
	case <-timer.C:
		w.drop(ctx, rec, "backlog_full", errors.New("backlog full"))
	case <-ctx.Done():
		w.drop(ctx, rec, "canceled", ctx.Err())
	}
}

// Stats returns a snapshot of the writer counters.
func (w *AsyncWriter) Stats() WriterStats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return WriterStats{Written: w.written, Failed: w.failed, Dropped: w.dropped, Backlog: len(w.ch)}
}

// Close stops accepting records and waits until the backlog is written or ctx ends.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ch)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("store writer drain: %w", ctx.Err())
	}
}

func (w *AsyncWriter) run() {
	defer close(w.done)
	for rec := range w.ch {
		metrics.UpdateWriterBacklog(len(w.ch))
		w.append(rec)
	}
}

func (w *AsyncWriter) append(rec model.PersistedRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	start := time.Now()
	err := w.store.Append(ctx, rec)
	if err == nil {
		metrics.RecordStoreWrite(rec.Measurement, time.Since(start))
		w.statsMu.Lock()
		w.written++
		w.statsMu.Unlock()
		return
	}

	reason := "error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(err, ErrInvalidRecord):
		reason = "invalid"
	case errors.Is(err, ErrClosed):
		reason = "closed"
	}
	if !errors.Is(err, ErrStoreWrite) {
		err = fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	metrics.RecordStoreWriteError(rec.Measurement, reason)
	metrics.RecordErrorByComponent("repository", reason)
	w.statsMu.Lock()
	w.failed++
	w.statsMu.Unlock()
	w.logger.Error(ctx, "store write failed",
		logger.String("measurement", rec.Measurement),
		logger.String("reason", reason),
		logger.Time("time", rec.Time),
		logger.Error(err))
}

func (w *AsyncWriter) drop(ctx context.Context, rec model.PersistedRecord, reason string, cause error) {
	metrics.RecordStoreWriteError(rec.Measurement, reason)
	metrics.RecordErrorByComponent("repository", reason)
	w.statsMu.Lock()
	w.dropped++
	w.statsMu.Unlock()
	w.logger.Warn(ctx, "store write dropped",
		logger.String("measurement", rec.Measurement),
		logger.String("reason", reason),
		logger.Error(fmt.Errorf("%w: %w", ErrStoreWrite, cause)))
}
