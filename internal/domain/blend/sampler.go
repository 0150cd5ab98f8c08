package blend

import (
	"math/rand"
	"sync"
)

// Sampler yields uniform values in [0,1). *rand.Rand satisfies it.
type Sampler interface {
	Float64() float64
}

// LockedSampler is a Sampler safe for concurrent use.
type LockedSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedSampler seeds a concurrency-safe sampler.
func NewLockedSampler(seed int64) *LockedSampler {
	return &LockedSampler{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // not security sensitive
}

// Float64 implements Sampler.
func (s *LockedSampler) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
