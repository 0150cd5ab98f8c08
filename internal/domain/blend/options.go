package blend

import (
	"github.com/okian/smartart/internal/domain/scoring"
	"github.com/okian/smartart/pkg/logger"
)

// Default engine configuration.
const (
	DefaultAlpha       = 0.5
	DefaultSampleCount = 100
	defaultSeed        = 42
)

// Option configures an Engine.
type Option func(*Engine)

// WithModel sets the predictor; nil leaves the engine in pass-through mode.
func WithModel(m scoring.Predictor) Option {
	return func(e *Engine) {
		if !isNil(m) {
			e.model = m
		}
	}
}

// WithAlpha sets the blend weight of the suggestion. Out-of-range values are ignored.
func WithAlpha(alpha float64) Option {
	return func(e *Engine) {
		if alpha >= 0 && alpha <= 1 {
			e.alpha = alpha
		}
	}
}

// WithSampleCount sets the number of random candidates per suggestion.
func WithSampleCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.sampleCount = n
		}
	}
}

// WithSampler sets the random source. It must be safe for concurrent use
// when Generate is called from several goroutines.
func WithSampler(s Sampler) Option {
	return func(e *Engine) {
		if s != nil {
			e.sampler = s
		}
	}
}

// WithBounds sets the search domain.
func WithBounds(b Bounds) Option {
	return func(e *Engine) {
		e.bounds = b
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
