package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/query"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/pkg/logger"
)

// InfluxConfig holds the InfluxDB v2 connection settings.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxStore writes points with the blocking write API and reads them back with Flux.
type InfluxStore struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	reader api.QueryAPI
	bucket string
	logger logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewInfluxStore connects to the server and checks that it answers.
func NewInfluxStore(ctx context.Context, cfg InfluxConfig, opts ...Option) (*InfluxStore, error) {
	o := defaultOptions("influx-store")
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: influx url and bucket are required", ErrUnavailable)
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(uint(o.writeTimeout/time.Second)+1))
	ok, err := client.Ping(ctx)
	if err != nil || !ok {
		client.Close()
		if err == nil {
			err = errors.New("ping failed")
		}
		return nil, fmt.Errorf("%w: influx %s: %w", ErrUnavailable, cfg.URL, err)
	}

	o.logger.Info(ctx, "influx store ready", logger.String("url", cfg.URL), logger.String("bucket", cfg.Bucket))
	return &InfluxStore{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		reader: client.QueryAPI(cfg.Org),
		bucket: cfg.Bucket,
		logger: o.logger,
	}, nil
}

// Append writes one point.
func (s *InfluxStore) Append(ctx context.Context, rec model.PersistedRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	p := influxdb2.NewPoint(rec.Measurement, rec.Tags, rec.Fields, rec.Time)
	if err := s.writer.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStoreWrite, rec.Measurement, err)
	}
	return nil
}

// Query runs a pivoted Flux query and regroups rows into records.
func (s *InfluxStore) Query(ctx context.Context, f Filter) ([]model.PersistedRecord, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	flux, err := buildFluxQuery(s.bucket, f)
	if err != nil {
		return nil, err
	}
	defer observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	result, err := s.reader.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer func() { _ = result.Close() }()

	var out []model.PersistedRecord
	for result.Next() {
		out = append(out, fluxRecord(f.Measurement, result.TableMetadata(), result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	// Each tag set arrives as its own table; merge them in time order.
	sort.SliceStable(out, func(i, j int) bool {
		if f.Desc {
			return out[i].Time.After(out[j].Time)
		}
		return out[i].Time.Before(out[j].Time)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Close releases the client.
func (s *InfluxStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.Close()
	return nil
}

func fluxRecord(measurement string, meta *query.FluxTableMetadata, row *query.FluxRecord) model.PersistedRecord {
	rec := model.PersistedRecord{
		Measurement: measurement,
		Fields:      make(map[string]any),
		Time:        row.Time().UTC(),
	}
	values := row.Values()
	for _, col := range meta.Columns() {
		name := col.Name()
		if strings.HasPrefix(name, "_") || name == "result" || name == "table" {
			continue
		}
		v, ok := values[name]
		if !ok || v == nil {
			continue
		}
		if col.IsGroup() {
			if rec.Tags == nil {
				rec.Tags = make(map[string]string)
			}
			rec.Tags[name] = fmt.Sprint(v)
			continue
		}
		rec.Fields[name] = v
	}
	return rec
}

func buildFluxQuery(bucket string, f Filter) (string, error) {
	start := time.Unix(0, 0).UTC()
	if !f.From.IsZero() {
		start = f.From.UTC()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", strconv.Quote(bucket))
	if f.To.IsZero() {
		fmt.Fprintf(&b, "  |> range(start: %s)\n", start.Format(time.RFC3339Nano))
	} else {
		// Flux stop is exclusive.
		stop := f.To.UTC().Add(time.Nanosecond)
		fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n", start.Format(time.RFC3339Nano), stop.Format(time.RFC3339Nano))
	}
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s)\n", strconv.Quote(f.Measurement))
	for _, k := range sortedKeys(f.Tags) {
		if !tagKeyPattern.MatchString(k) {
			return "", fmt.Errorf("%w: unsupported tag key %q", ErrQuery, k)
		}
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r[%s] == %s)\n", strconv.Quote(k), strconv.Quote(f.Tags[k]))
	}
	b.WriteString(`  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")`)
	b.WriteString("\n")
	if f.Desc {
		b.WriteString(`  |> sort(columns: ["_time"], desc: true)`)
	} else {
		b.WriteString(`  |> sort(columns: ["_time"])`)
	}
	if f.Limit > 0 {
		fmt.Fprintf(&b, "\n  |> limit(n: %d)", f.Limit)
	}
	return b.String(), nil
}
