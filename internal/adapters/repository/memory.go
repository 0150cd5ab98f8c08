package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/smartart/internal/domain/model"
)

// MemoryStore keeps records in per-measurement slices sorted by time.
type MemoryStore struct {
	mu     sync.RWMutex
	series map[string][]model.PersistedRecord
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[string][]model.PersistedRecord)}
}

// Append inserts rec after every record with the same or an earlier time.
func (s *MemoryStore) Append(_ context.Context, rec model.PersistedRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	rec = cloneRecord(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	recs := s.series[rec.Measurement]
	i := sort.Search(len(recs), func(i int) bool { return recs[i].Time.After(rec.Time) })
	recs = append(recs, model.PersistedRecord{})
	copy(recs[i+1:], recs[i:])
	recs[i] = rec
	s.series[rec.Measurement] = recs
	return nil
}

// Query returns copies of the matching records.
func (s *MemoryStore) Query(_ context.Context, f Filter) ([]model.PersistedRecord, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	recs := s.series[f.Measurement]
	lo := 0
	if !f.From.IsZero() {
		lo = sort.Search(len(recs), func(i int) bool { return !recs[i].Time.Before(f.From) })
	}
	hi := len(recs)
	if !f.To.IsZero() {
		hi = sort.Search(len(recs), func(i int) bool { return recs[i].Time.After(f.To) })
	}

	var out []model.PersistedRecord
	visit := func(rec model.PersistedRecord) bool {
		if !rec.MatchesTags(f.Tags) {
			return true
		}
		out = append(out, cloneRecord(rec))
		return !f.full(len(out))
	}
	if f.Desc {
		for i := hi - 1; i >= lo; i-- {
			if !visit(recs[i]) {
				break
			}
		}
	} else {
		for i := lo; i < hi; i++ {
			if !visit(recs[i]) {
				break
			}
		}
	}
	return out, nil
}

// Len returns the number of records held for a measurement.
func (s *MemoryStore) Len(measurement string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[measurement])
}

// Close releases the records; later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.series = nil
	return nil
}
