// Package repository persists time-series records and reads them back by
// measurement, time range and tags.
package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/pkg/metrics"
)

// Filter selects records from one measurement.
type Filter struct {
	Measurement string
	// From and To are inclusive; a zero value leaves that side open.
	From time.Time
	To   time.Time
	// Tags must all match.
	Tags map[string]string
	// Desc returns the newest records first.
	Desc bool
	// Limit caps the result; zero means no cap.
	Limit int
}

// Store is an append-only time-series store.
type Store interface {
	// Append persists one record.
	Append(ctx context.Context, rec model.PersistedRecord) error
	// Query returns matching records ordered by time, then by append order.
	Query(ctx context.Context, f Filter) ([]model.PersistedRecord, error)
	Close() error
}

// Latest returns the most recent record of a measurement or ErrNotFound.
func Latest(ctx context.Context, s Store, measurement string) (model.PersistedRecord, error) {
	recs, err := s.Query(ctx, Filter{Measurement: measurement, Desc: true, Limit: 1})
	if err != nil {
		return model.PersistedRecord{}, err
	}
	if len(recs) == 0 {
		return model.PersistedRecord{}, fmt.Errorf("%w: %s", ErrNotFound, measurement)
	}
	return recs[0], nil
}

func validate(rec model.PersistedRecord) error {
	switch {
	case rec.Measurement == "":
		return fmt.Errorf("%w: empty measurement", ErrInvalidRecord)
	case rec.Time.IsZero():
		return fmt.Errorf("%w: zero time", ErrInvalidRecord)
	case len(rec.Fields) == 0:
		return fmt.Errorf("%w: no fields", ErrInvalidRecord)
	}
	return nil
}

func validateFilter(f Filter) error {
	switch {
	case f.Measurement == "":
		return fmt.Errorf("%w: empty measurement", ErrQuery)
	case f.Limit < 0:
		return fmt.Errorf("%w: negative limit", ErrQuery)
	case !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From):
		return fmt.Errorf("%w: range ends before it starts", ErrQuery)
	}
	return nil
}

func (f Filter) inRange(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.After(f.To) {
		return false
	}
	return true
}

func (f Filter) full(n int) bool {
	return f.Limit > 0 && n >= f.Limit
}

func cloneRecord(rec model.PersistedRecord) model.PersistedRecord {
	out := model.PersistedRecord{
		Measurement: rec.Measurement,
		Fields:      make(map[string]any, len(rec.Fields)),
		Time:        rec.Time.UTC(),
	}
	for k, v := range rec.Fields {
		out.Fields[k] = v
	}
	if len(rec.Tags) > 0 {
		out.Tags = make(map[string]string, len(rec.Tags))
		for k, v := range rec.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

func observeQuery(start time.Time) {
	metrics.RecordStoreQuery(time.Since(start))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
