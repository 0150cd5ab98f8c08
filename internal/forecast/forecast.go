// Package forecast fits a linear trend to recent sensor history and reports
// how well it extrapolates.
package forecast

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/okian/smartart/internal/adapters/repository"
	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/pkg/logger"
)

// Defaults used when Options leaves a value zero.
const (
	DefaultLookback      = 6 * time.Hour
	DefaultStep          = time.Minute
	DefaultTrainFraction = 0.8
)

// Options configures a forecast run.
type Options struct {
	// Measurement defaults to sensor_data.
	Measurement string
	// Fields defaults to temperature, humidity and light.
	Fields        []string
	Lookback      time.Duration
	Step          time.Duration
	TrainFraction float64
	Location      string
	// PlotDir receives one PNG per field when set.
	PlotDir string
	Now     func() time.Time
	Logger  logger.Logger
}

// FieldReport is the outcome for one field.
type FieldReport struct {
	Field  string `json:"field"`
	Points int    `json:"points"`
	Fit
	Plot string `json:"plot,omitempty"`
	Err  string `json:"error,omitempty"`
}

// Report collects every field outcome.
type Report struct {
	From   time.Time     `json:"from"`
	To     time.Time     `json:"to"`
	Fields []FieldReport `json:"fields"`
}

func (o *Options) defaults() {
	if o.Measurement == "" {
		o.Measurement = model.MeasurementSensorData
	}
	if len(o.Fields) == 0 {
		o.Fields = model.FeatureFields
	}
	if o.Lookback <= 0 {
		o.Lookback = DefaultLookback
	}
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	if o.TrainFraction == 0 {
		o.TrainFraction = DefaultTrainFraction
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = logger.Get().Named("forecast")
	}
}

// Run queries the lookback window and forecasts each field. A field without
// enough data is reported with its error; the run fails only when no record
// exists at all.
func Run(ctx context.Context, store repository.Store, opts Options) (Report, error) {
	opts.defaults()
	to := opts.Now().UTC()
	rep := Report{From: to.Add(-opts.Lookback), To: to}

	filter := repository.Filter{Measurement: opts.Measurement, From: rep.From, To: rep.To}
	if opts.Location != "" {
		filter.Tags = map[string]string{model.TagLocation: opts.Location}
	}
	recs, err := store.Query(ctx, filter)
	if err != nil {
		return rep, fmt.Errorf("query %s: %w", opts.Measurement, err)
	}
	if len(recs) == 0 {
		return rep, fmt.Errorf("%w: %s since %s", ErrNoData, opts.Measurement, rep.From.Format(time.RFC3339))
	}

	for _, field := range opts.Fields {
		fr := forecastField(recs, field, opts)
		if fr.Err != "" {
			opts.Logger.Warn(ctx, "field not forecast", logger.String("field", field), logger.String("reason", fr.Err))
		} else {
			opts.Logger.Info(ctx, "field forecast",
				logger.String("field", field),
				logger.Int("points", fr.Points),
				logger.Float64("mae", fr.MAE),
				logger.Float64("mse", fr.MSE))
		}
		rep.Fields = append(rep.Fields, fr)
	}
	return rep, nil
}

func forecastField(recs []model.PersistedRecord, field string, opts Options) FieldReport {
	fr := FieldReport{Field: field}
	points := make([]Point, 0, len(recs))
	for _, r := range recs {
		if v, ok := r.Float(field); ok {
			points = append(points, Point{Time: r.Time, Value: v})
		}
	}
	if len(points) == 0 {
		fr.Err = fmt.Sprintf("field %q not found in data", field)
		return fr
	}

	series := Resample(points, opts.Step)
	fr.Points = len(series)
	fit, err := FitTrend(series, opts.TrainFraction)
	if err != nil {
		fr.Err = err.Error()
		return fr
	}
	fr.Fit = fit

	if opts.PlotDir != "" {
		path := filepath.Join(opts.PlotDir, field+"_forecast.png")
		if err := SavePlot(path, field, series, fit); err != nil {
			fr.Err = err.Error()
			return fr
		}
		fr.Plot = path
	}
	return fr
}
