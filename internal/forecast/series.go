package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Point is one sample of a series.
type Point struct {
	Time  time.Time
	Value float64
}

// Resample averages points into step-wide buckets starting at the first
// point's bucket. Empty buckets between samples are filled by linear
// interpolation. Points must be sorted by time.
func Resample(points []Point, step time.Duration) []Point {
	if len(points) == 0 || step <= 0 {
		return nil
	}
	start := points[0].Time.Truncate(step)
	n := int(points[len(points)-1].Time.Sub(start)/step) + 1

	sums := make([]float64, n)
	counts := make([]int, n)
	for _, p := range points {
		i := int(p.Time.Sub(start) / step)
		sums[i] += p.Value
		counts[i]++
	}

	out := make([]Point, n)
	prev := -1
	for i := range out {
		out[i].Time = start.Add(time.Duration(i) * step)
		if counts[i] == 0 {
			continue
		}
		out[i].Value = sums[i] / float64(counts[i])
		if prev >= 0 && i-prev > 1 {
			for k := prev + 1; k < i; k++ {
				frac := float64(k-prev) / float64(i-prev)
				out[k].Value = out[prev].Value + frac*(out[i].Value-out[prev].Value)
			}
		}
		prev = i
	}
	return out
}

// Fit is a linear trend fitted on the head of a series and evaluated on its tail.
type Fit struct {
	Intercept float64   `json:"intercept"`
	Slope     float64   `json:"slope"`
	Train     int       `json:"train"`
	Test      int       `json:"test"`
	MAE       float64   `json:"mae"`
	MSE       float64   `json:"mse"`
	Forecast  []float64 `json:"-"`
}

// FitTrend splits series at trainFraction, regresses value on step index over
// the training part and scores the extrapolation on the rest.
func FitTrend(series []Point, trainFraction float64) (Fit, error) {
	if !(trainFraction > 0 && trainFraction < 1) {
		return Fit{}, fmt.Errorf("train fraction %v outside (0,1)", trainFraction)
	}
	split := int(trainFraction * float64(len(series)))
	if split < 2 || split >= len(series) {
		return Fit{}, fmt.Errorf("%w: %d resampled points", ErrNotEnoughData, len(series))
	}

	xs := make([]float64, split)
	ys := make([]float64, split)
	for i := 0; i < split; i++ {
		xs[i] = float64(i)
		ys[i] = series[i].Value
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	f := Fit{Intercept: alpha, Slope: beta, Train: split, Test: len(series) - split}
	f.Forecast = make([]float64, 0, f.Test)
	var absSum, sqSum float64
	for i := split; i < len(series); i++ {
		pred := alpha + beta*float64(i)
		f.Forecast = append(f.Forecast, pred)
		d := series[i].Value - pred
		absSum += math.Abs(d)
		sqSum += d * d
	}
	f.MAE = absSum / float64(f.Test)
	f.MSE = sqSum / float64(f.Test)
	return f, nil
}
