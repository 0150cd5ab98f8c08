// Package blend turns model suggestions into environment vectors for the
// generative renderer.
package blend

import (
	"fmt"
	"math"

	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/internal/domain/scoring"
)

// Suggest draws sampleCount uniform candidates inside DefaultBounds and
// returns the one with the highest predicted score. The first candidate wins
// ties. ok is false when m is nil or sampleCount is below 1.
func Suggest(m scoring.Predictor, sampleCount int, sampler Sampler) (model.Vector, bool) {
	return SuggestWithin(m, sampleCount, sampler, DefaultBounds())
}

// SuggestWithin is Suggest over explicit bounds.
func SuggestWithin(m scoring.Predictor, sampleCount int, sampler Sampler, b Bounds) (model.Vector, bool) {
	if isNil(m) || sampleCount < 1 || sampler == nil {
		return model.Vector{}, false
	}

	var (
		best      model.Vector
		bestScore = math.Inf(-1)
		found     bool
	)
	for i := 0; i < sampleCount; i++ {
		// fixed draw order keeps a seeded sampler reproducible
		c := model.Vector{
			Light:       b.Light.at(sampler.Float64()),
			Temperature: b.Temperature.at(sampler.Float64()),
			Humidity:    b.Humidity.at(sampler.Float64()),
		}
		score := m.Predict(c)
		if !found || score > bestScore {
			best, bestScore, found = c, score, true
		}
	}
	return best, true
}

// Blend mixes live and candidate per environmental field as
// (1-alpha)*live + alpha*candidate. Motion and observedAt pass through from live.
func Blend(live model.SensorSnapshot, candidate model.Vector, alpha float64) (model.BlendedVector, error) {
	if !(alpha >= 0 && alpha <= 1) {
		return model.BlendedVector{}, fmt.Errorf("%w: %v", ErrAlphaOutOfRange, alpha)
	}
	return model.BlendedVector{
		Temperature: mix(live.Temperature, candidate.Temperature, alpha),
		Humidity:    mix(live.Humidity, candidate.Humidity, alpha),
		Light:       mix(live.Light, candidate.Light, alpha),
		Motion:      live.Motion,
		ObservedAt:  live.ObservedAt,
		Alpha:       alpha,
		Suggested:   true,
	}, nil
}

// mix stays within [min(a,b), max(a,b)] despite rounding.
func mix(a, b, alpha float64) float64 {
	v := (1-alpha)*a + alpha*b
	lo, hi := math.Min(a, b), math.Max(a, b)
	return math.Max(lo, math.Min(hi, v))
}

// Passthrough returns live unchanged as a BlendedVector.
func Passthrough(live model.SensorSnapshot) model.BlendedVector {
	return model.BlendedVector{
		Temperature: live.Temperature,
		Humidity:    live.Humidity,
		Light:       live.Light,
		Motion:      live.Motion,
		ObservedAt:  live.ObservedAt,
	}
}

func isNil(p scoring.Predictor) bool {
	if p == nil {
		return true
	}
	lm, ok := p.(*scoring.LinearModel)
	return ok && lm == nil
}
