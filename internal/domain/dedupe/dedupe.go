// Package dedupe tracks recently seen keys so redelivered messages can be
// recognized and dropped.
package dedupe

import (
	"context"
	"sync"
)

// DefaultMaxSize bounds the window when no option overrides it.
const DefaultMaxSize = 4096

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord reports whether key is already in the window and records
	// it when it is not.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes key so its next occurrence counts as new.
	Unrecord(ctx context.Context, key string)

	Size() int
}

// window keeps the newest maxSize keys in a ring; the oldest is evicted first.
type window struct {
	mu      sync.Mutex
	seen    map[string]int // key -> ring slot
	ring    []string
	next    int
	maxSize int
}

// NewInMemoryDeduper creates a bounded in-memory Deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &window{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int, d.maxSize)
	d.ring = make([]string, d.maxSize)
	return d
}

func (d *window) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = key
	d.seen[key] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *window) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[key]
	if !ok {
		return
	}
	delete(d.seen, key)
	d.ring[slot] = ""
}

func (d *window) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
