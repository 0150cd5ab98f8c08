package ingest

import (
	"time"

	"github.com/okian/smartart/pkg/logger"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithPublisher sets the bus used by OnHTTPSubmission.
func WithPublisher(p Publisher) Option {
	return func(b *Bridge) {
		b.publisher = p
	}
}

// WithClock overrides the time source used when an event carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLocation sets the location tag attached to sensor records.
func WithLocation(location string) Option {
	return func(b *Bridge) {
		b.location = location
	}
}

// WithTopics sets the sensor and motion topic names.
func WithTopics(sensor, motion string) Option {
	return func(b *Bridge) {
		if sensor != "" {
			b.sensorTopic = sensor
		}
		if motion != "" {
			b.motionTopic = motion
		}
	}
}
