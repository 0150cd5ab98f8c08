// Package state holds the latest known sensor snapshot shared by every ingress path.
package state

import (
	"sync"
	"sync/atomic"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/pkg/metrics"
)

// Buffer is the single-writer-at-a-time, many-reader holder of the live snapshot.
// Merges are serialized; Read never blocks and always returns a whole snapshot.
type Buffer struct {
	mu      sync.Mutex
	current atomic.Pointer[model.SensorSnapshot]
}

// New creates a Buffer seeded with initial.
func New(initial model.SensorSnapshot) *Buffer {
	b := &Buffer{}
	snap := initial
	b.current.Store(&snap)
	return b
}

// Merge overwrites the fields present in p and returns the resulting snapshot.
// ObservedAt only moves forward.
func (b *Buffer) Merge(p model.PartialSnapshot) model.SensorSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := *b.current.Load()
	if p.Temperature != nil {
		next.Temperature = *p.Temperature
	}
	if p.Humidity != nil {
		next.Humidity = *p.Humidity
	}
	if p.Light != nil {
		next.Light = *p.Light
	}
	if p.Motion != nil {
		next.Motion = *p.Motion
	}
	if p.ObservedAt.After(next.ObservedAt) {
		next.ObservedAt = p.ObservedAt
	}

	b.current.Store(&next)
	metrics.RecordStateMerge()
	return next
}

// Read returns a copy of the current snapshot.
func (b *Buffer) Read() model.SensorSnapshot {
	return *b.current.Load()
}
