package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/pkg/logger"
)

var tagKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// OpenSQLite opens the database file at path with WAL journaling.
// It does not apply migrations.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %w", ErrUnavailable, path, err)
	}
	// One connection serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, pragma, err)
		}
	}
	return db, nil
}

// SQLiteStore persists records in a single SQLite table with JSON tag and field columns.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens path and migrates the schema to the latest version.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions("sqlite-store")
	for _, opt := range opts {
		opt(&o)
	}

	db, err := OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := MigrateUp(db, o.logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	o.logger.Info(ctx, "sqlite store ready", logger.String("path", path))
	return &SQLiteStore{db: db, logger: o.logger}, nil
}

// DB exposes the underlying handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Append inserts one row.
func (s *SQLiteStore) Append(ctx context.Context, rec model.PersistedRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	tags, err := json.Marshal(nonNilTags(rec.Tags))
	if err != nil {
		return fmt.Errorf("%w: tags: %w", ErrInvalidRecord, err)
	}
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("%w: fields: %w", ErrInvalidRecord, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (measurement, time_ns, tags, fields) VALUES (?, ?, ?, ?)`,
		rec.Measurement, rec.Time.UnixNano(), string(tags), string(fields))
	if err != nil {
		return fmt.Errorf("%w: insert %s: %w", ErrStoreWrite, rec.Measurement, err)
	}
	return nil
}

// Query selects rows for one measurement.
func (s *SQLiteStore) Query(ctx context.Context, f Filter) ([]model.PersistedRecord, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	query, args, err := buildSQLiteQuery(f)
	if err != nil {
		return nil, err
	}
	defer observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.PersistedRecord
	for rows.Next() {
		var (
			ns     int64
			tags   string
			fields string
		)
		if err := rows.Scan(&ns, &tags, &fields); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrQuery, err)
		}
		rec := model.PersistedRecord{Measurement: f.Measurement, Time: time.Unix(0, ns).UTC()}
		if err := decodeJSON([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("%w: fields: %w", ErrQuery, err)
		}
		if err := decodeJSON([]byte(tags), &rec.Tags); err != nil {
			return nil, fmt.Errorf("%w: tags: %w", ErrQuery, err)
		}
		if len(rec.Tags) == 0 {
			rec.Tags = nil
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func buildSQLiteQuery(f Filter) (string, []any, error) {
	var (
		b    strings.Builder
		args = []any{f.Measurement}
	)
	b.WriteString(`SELECT time_ns, tags, fields FROM records WHERE measurement = ?`)
	if !f.From.IsZero() {
		b.WriteString(` AND time_ns >= ?`)
		args = append(args, f.From.UnixNano())
	}
	if !f.To.IsZero() {
		b.WriteString(` AND time_ns <= ?`)
		args = append(args, f.To.UnixNano())
	}
	for _, k := range sortedKeys(f.Tags) {
		if !tagKeyPattern.MatchString(k) {
			return "", nil, fmt.Errorf("%w: unsupported tag key %q", ErrQuery, k)
		}
		fmt.Fprintf(&b, ` AND json_extract(tags, '$.%s') = ?`, k)
		args = append(args, f.Tags[k])
	}
	if f.Desc {
		b.WriteString(` ORDER BY time_ns DESC, id DESC`)
	} else {
		b.WriteString(` ORDER BY time_ns ASC, id ASC`)
	}
	if f.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}
	return b.String(), args, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func nonNilTags(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	return tags
}
