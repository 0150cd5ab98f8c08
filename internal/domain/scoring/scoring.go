// Package scoring provides the suggestion model: a regressor from an
// environment vector to a predicted rating.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/smartart/internal/domain/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Predictor scores an environment vector; higher means a better expected rating.
type Predictor interface {
	Predict(v model.Vector) float64
}

// LinearModel is a ridge regression over standardized features.
type LinearModel struct {
	Features  []string  `yaml:"features"`
	Intercept float64   `yaml:"intercept"`
	Weights   []float64 `yaml:"weights"`
	Means     []float64 `yaml:"means"`
	Scales    []float64 `yaml:"scales"`
	Samples   int       `yaml:"samples"`
	RSquared  float64   `yaml:"r_squared"`
	TrainedAt time.Time `yaml:"trained_at"`
}

var _ Predictor = (*LinearModel)(nil)

// Train fits a LinearModel to samples.
func Train(samples []model.CorrelatedSample, opts ...TrainOption) (*LinearModel, error) {
	cfg := trainConfig{ridge: defaultRidge, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	n := len(samples)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2, got %d", ErrInsufficientSamples, n)
	}
	p := len(model.FeatureFields)

	cols := make([][]float64, p)
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	y := make([]float64, n)
	for i, s := range samples {
		for j, v := range s.Features.Slice() {
			cols[j][i] = v
		}
		y[i] = float64(s.Label)
	}

	means := make([]float64, p)
	scales := make([]float64, p)
	for j := range cols {
		m, sd := stat.MeanStdDev(cols[j], nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		means[j], scales[j] = m, sd
	}
	yMean := stat.Mean(y, nil)

	x := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			x.Set(i, j, (cols[j][i]-means[j])/scales[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j := 0; j < p; j++ {
		xtx.Set(j, j, xtx.At(j, j)+cfg.ridge)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), yc)

	var w mat.VecDense
	if err := w.SolveVec(&xtx, &xty); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSingularSystem, err)
	}

	lm := &LinearModel{
		Features:  append([]string(nil), model.FeatureFields...),
		Intercept: yMean,
		Weights:   make([]float64, p),
		Means:     means,
		Scales:    scales,
		Samples:   n,
		TrainedAt: cfg.now().UTC(),
	}
	for j := 0; j < p; j++ {
		lm.Weights[j] = w.AtVec(j)
	}

	estimates := make([]float64, n)
	for i, s := range samples {
		estimates[i] = lm.Predict(s.Features)
	}
	if r2 := stat.RSquaredFrom(estimates, y, nil); !math.IsNaN(r2) {
		lm.RSquared = r2
	}
	return lm, nil
}

// Predict returns the expected rating for v.
func (m *LinearModel) Predict(v model.Vector) float64 {
	out := m.Intercept
	for j, x := range v.Slice() {
		out += m.Weights[j] * (x - m.Means[j]) / m.Scales[j]
	}
	return out
}

// FeatureImportances returns each feature's share of the absolute standardized weight.
func (m *LinearModel) FeatureImportances() map[string]float64 {
	total := 0.0
	for _, w := range m.Weights {
		total += math.Abs(w)
	}
	out := make(map[string]float64, len(m.Features))
	for j, name := range m.Features {
		if total == 0 {
			out[name] = 0
			continue
		}
		out[name] = math.Abs(m.Weights[j]) / total
	}
	return out
}

func (m *LinearModel) validate() error {
	p := len(model.FeatureFields)
	if len(m.Weights) != p || len(m.Means) != p || len(m.Scales) != p {
		return fmt.Errorf("expected %d weights, means and scales", p)
	}
	for j, name := range model.FeatureFields {
		if j < len(m.Features) && m.Features[j] != name {
			return fmt.Errorf("feature %d is %q, want %q", j, m.Features[j], name)
		}
		if m.Scales[j] == 0 {
			return fmt.Errorf("feature %q has zero scale", name)
		}
	}
	return nil
}
