package service

import (
	"time"

	"github.com/okian/smartart/internal/adapters/mq/bus"
	"github.com/okian/smartart/internal/adapters/repository"
	"github.com/okian/smartart/internal/domain/blend"
	"github.com/okian/smartart/internal/domain/scoring"
	"github.com/okian/smartart/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the store selected by configuration. The service closes it on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithBus replaces the bus selected by configuration. The service closes it on Stop.
func WithBus(b bus.Bus) Option {
	return func(s *Service) {
		s.bus = b
	}
}

// WithModel sets the suggestion model instead of loading it from model_path.
func WithModel(m scoring.Predictor) Option {
	return func(s *Service) {
		s.predictor = m
	}
}

// WithSampler sets the random source used for suggestions.
func WithSampler(sm blend.Sampler) Option {
	return func(s *Service) {
		s.sampler = sm
	}
}

// WithClock overrides the time source used for rating submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for queued work.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}
