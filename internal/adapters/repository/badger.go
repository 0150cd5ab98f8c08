package repository

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/pkg/logger"
)

// Key layout: measurement | 0x00 | time (8 bytes) | sequence (8 bytes).
// Time is offset so that negative nanoseconds still sort before positive ones.
const (
	keySeparator = 0x00
	keySuffixLen = 16
	seqBandwidth = 256
)

var seqKey = []byte{keySeparator, 's', 'e', 'q'}

type badgerValue struct {
	Tags   map[string]string `json:"tags,omitempty"`
	Fields map[string]any    `json:"fields"`
}

// BadgerStore keeps records in an embedded badger database with time-ordered keys.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewBadgerStore opens (or creates) a badger database in dir.
// WithInMemory(true) ignores dir and keeps everything in memory.
func NewBadgerStore(ctx context.Context, dir string, opts ...Option) (*BadgerStore, error) {
	o := defaultOptions("badger-store")
	for _, opt := range opts {
		opt(&o)
	}

	bopts := badger.DefaultOptions(dir)
	if o.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger %s: %w", ErrUnavailable, dir, err)
	}
	seq, err := db.GetSequence(seqKey, seqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: sequence: %w", ErrUnavailable, err)
	}
	o.logger.Info(ctx, "badger store ready", logger.String("dir", dir), logger.Bool("in_memory", o.inMemory))
	return &BadgerStore{db: db, seq: seq, logger: o.logger}, nil
}

// Append writes one key.
func (s *BadgerStore) Append(_ context.Context, rec model.PersistedRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	val, err := json.Marshal(badgerValue{Tags: rec.Tags, Fields: rec.Fields})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("%w: sequence: %w", ErrStoreWrite, err)
	}
	key := recordKey(rec.Measurement, rec.Time, n)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	}); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStoreWrite, rec.Measurement, err)
	}
	return nil
}

// Query scans the measurement prefix forward or in reverse.
func (s *BadgerStore) Query(ctx context.Context, f Filter) ([]model.PersistedRecord, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	defer observeQuery(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	prefix := measurementPrefix(f.Measurement)
	var out []model.PersistedRecord
	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = prefix
		iopts.Reverse = f.Desc
		it := txn.NewIterator(iopts)
		defer it.Close()

		for it.Seek(seekKey(prefix, f)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			ts, ok := keyTime(item.Key(), len(prefix))
			if !ok {
				continue
			}
			if !f.inRange(ts) {
				// Keys are time-ordered: leaving the range ends the scan.
				break
			}

			var v badgerValue
			if err := item.Value(func(val []byte) error {
				return decodeJSON(val, &v)
			}); err != nil {
				return err
			}
			rec := model.PersistedRecord{Measurement: f.Measurement, Fields: v.Fields, Tags: v.Tags, Time: ts}
			if !rec.MatchesTags(f.Tags) {
				continue
			}
			out = append(out, rec)
			if f.full(len(out)) {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return out, nil
}

// Close releases the sequence and closes the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.seq.Release(); err != nil {
		s.logger.Warn(context.Background(), "release sequence", logger.Error(err))
	}
	return s.db.Close()
}

func measurementPrefix(measurement string) []byte {
	p := make([]byte, 0, len(measurement)+1)
	p = append(p, measurement...)
	return append(p, keySeparator)
}

func encodeTime(t time.Time) uint64 {
	return uint64(t.UnixNano()) ^ (1 << 63)
}

func recordKey(measurement string, t time.Time, seq uint64) []byte {
	key := measurementPrefix(measurement)
	key = binary.BigEndian.AppendUint64(key, encodeTime(t))
	return binary.BigEndian.AppendUint64(key, seq)
}

func keyTime(key []byte, prefixLen int) (time.Time, bool) {
	if len(key) != prefixLen+keySuffixLen {
		return time.Time{}, false
	}
	ns := int64(binary.BigEndian.Uint64(key[prefixLen:prefixLen+8]) ^ (1 << 63))
	return time.Unix(0, ns).UTC(), true
}

// seekKey returns the first key to visit. Reverse iteration seeks to the
// largest key not after the upper bound.
func seekKey(prefix []byte, f Filter) []byte {
	if f.Desc {
		if f.To.IsZero() {
			return append(bytes.Clone(prefix), bytes.Repeat([]byte{0xff}, keySuffixLen)...)
		}
		key := binary.BigEndian.AppendUint64(bytes.Clone(prefix), encodeTime(f.To))
		return append(key, bytes.Repeat([]byte{0xff}, 8)...)
	}
	if f.From.IsZero() {
		return bytes.Clone(prefix)
	}
	return binary.BigEndian.AppendUint64(bytes.Clone(prefix), encodeTime(f.From))
}
