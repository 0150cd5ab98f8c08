package blend

import (
	"context"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/internal/domain/scoring"
	"github.com/okian/smartart/pkg/logger"
	"github.com/okian/smartart/pkg/metrics"
)

// Engine produces the vector handed to the renderer on each generation cycle.
type Engine struct {
	model       scoring.Predictor
	alpha       float64
	sampleCount int
	sampler     Sampler
	bounds      Bounds
	logger      logger.Logger
}

// NewEngine builds an Engine. Without a model it logs once and passes live
// values through on every call.
func NewEngine(ctx context.Context, opts ...Option) *Engine {
	e := &Engine{
		alpha:       DefaultAlpha,
		sampleCount: DefaultSampleCount,
		sampler:     NewLockedSampler(defaultSeed),
		bounds:      DefaultBounds(),
		logger:      logger.Get().Named("blend"),
	}
	for _, opt := range opts {
		opt(e)
	}

	metrics.SetModelAvailable(e.model != nil)
	if e.model == nil {
		e.logger.Warn(ctx, "suggestion model unavailable, blending disabled",
			logger.Error(scoring.ErrModelUnavailable))
	}
	return e
}

// HasModel reports whether suggestions are enabled.
func (e *Engine) HasModel() bool { return e.model != nil }

// Alpha returns the configured blend weight.
func (e *Engine) Alpha() float64 { return e.alpha }

// Generate blends a fresh suggestion into live, or returns live unchanged
// when no model is configured.
func (e *Engine) Generate(ctx context.Context, live model.SensorSnapshot) model.BlendedVector {
	candidate, ok := SuggestWithin(e.model, e.sampleCount, e.sampler, e.bounds)
	if !ok {
		metrics.RecordBlendRequest("passthrough")
		return Passthrough(live)
	}

	out, err := Blend(live, candidate, e.alpha)
	if err != nil {
		// alpha is validated by WithAlpha; reaching this is a programming error
		e.logger.Error(ctx, "blend failed", logger.Error(err))
		metrics.RecordBlendRequest("passthrough")
		return Passthrough(live)
	}

	metrics.RecordBlendRequest("blended")
	e.logger.Debug(ctx, "blended suggestion",
		logger.Float64("light", out.Light),
		logger.Float64("temperature", out.Temperature),
		logger.Float64("humidity", out.Humidity))
	return out
}
