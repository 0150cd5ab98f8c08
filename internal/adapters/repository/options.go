package repository

import (
	"time"

	"github.com/okian/smartart/pkg/logger"
)

// Default writer settings.
const (
	DefaultWriteTimeout   = 2 * time.Second
	DefaultBufferSize     = 1024
	DefaultEnqueueTimeout = 100 * time.Millisecond
)

type options struct {
	logger         logger.Logger
	inMemory       bool
	writeTimeout   time.Duration
	bufferSize     int
	enqueueTimeout time.Duration
}

func defaultOptions(component string) options {
	return options{
		logger:         logger.Get().Named(component),
		writeTimeout:   DefaultWriteTimeout,
		bufferSize:     DefaultBufferSize,
		enqueueTimeout: DefaultEnqueueTimeout,
	}
}

// Option applies a configuration option to a store or writer.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithInMemory keeps badger data in memory only.
func WithInMemory(v bool) Option {
	return func(o *options) {
		o.inMemory = v
	}
}

// WithWriteTimeout bounds a single append issued by the AsyncWriter.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithBufferSize sets the AsyncWriter backlog capacity.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithEnqueueTimeout sets how long Write waits for backlog space before dropping.
// Zero drops immediately when the backlog is full.
func WithEnqueueTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.enqueueTimeout = d
		}
	}
}
