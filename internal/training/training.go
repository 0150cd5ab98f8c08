// Package training builds the suggestion model from stored ratings and sensor readings.
package training

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/smartart/internal/adapters/repository"
	"github.com/okian/smartart/internal/domain/correlate"
	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/internal/domain/scoring"
	"github.com/okian/smartart/pkg/logger"
	"github.com/okian/smartart/pkg/metrics"
)

// DefaultWindow is the rating/sensor matching tolerance.
const DefaultWindow = 5 * time.Second

// Options configures a training run.
type Options struct {
	// Window bounds the distance between a rating and its sensor record.
	// Zero uses DefaultWindow.
	Window time.Duration
	// ModelPath is where the model is saved; empty skips saving.
	ModelPath string
	// Ridge is the L2 penalty; zero keeps the scoring default.
	Ridge float64
	// Location restricts sensor records to one tag value when set.
	Location string
	// From and To restrict the ratings considered; zero leaves a side open.
	From time.Time
	To   time.Time

	Logger logger.Logger
}

// Report summarizes a training run.
type Report struct {
	Ratings     int                  `json:"ratings"`
	Undecodable int                  `json:"undecodable"`
	Records     int                  `json:"records"`
	Matched     int                  `json:"matched"`
	Unmatched   int                  `json:"unmatched"`
	RSquared    float64              `json:"r_squared"`
	Importances map[string]float64   `json:"importances"`
	ModelPath   string               `json:"model_path,omitempty"`
	Model       *scoring.LinearModel `json:"-"`
}

// Run fetches visual_ratings and all_sensor_data, correlates them, trains a
// model and saves it to opts.ModelPath.
func Run(ctx context.Context, store repository.Store, opts Options) (Report, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Get().Named("training")
	}
	window := opts.Window
	if window == 0 {
		window = DefaultWindow
	}

	log.Info(ctx, "fetching ratings")
	rows, err := store.Query(ctx, repository.Filter{
		Measurement: model.MeasurementVisualRatings,
		From:        opts.From,
		To:          opts.To,
	})
	if err != nil {
		return Report{}, fmt.Errorf("query ratings: %w", err)
	}

	var rep Report
	ratings := make([]model.RatingEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := model.RatingFromRecord(row)
		if err != nil {
			rep.Undecodable++
			log.Warn(ctx, "skipping rating", logger.Time("time", row.Time), logger.Error(err))
			continue
		}
		ratings = append(ratings, ev)
	}
	rep.Ratings = len(ratings)
	if len(ratings) == 0 {
		return rep, ErrNoRatings
	}

	from, to := visualSpan(ratings)
	filter := repository.Filter{
		Measurement: model.MeasurementAllSensorData,
		From:        from.Add(-window),
		To:          to.Add(window),
	}
	if opts.Location != "" {
		filter.Tags = map[string]string{model.TagLocation: opts.Location}
	}
	records, err := store.Query(ctx, filter)
	if err != nil {
		return rep, fmt.Errorf("query sensor records: %w", err)
	}
	rep.Records = len(records)

	res := correlate.Correlate(ratings, records, window)
	rep.Matched = len(res.Samples)
	rep.Unmatched = res.Unmatched
	metrics.RecordCorrelation(rep.Matched, rep.Unmatched)
	log.Info(ctx, "correlated ratings",
		logger.Int("ratings", rep.Ratings),
		logger.Int("records", rep.Records),
		logger.Int("matched", rep.Matched),
		logger.Int("unmatched", rep.Unmatched),
		logger.Duration("window", window))
	if rep.Matched == 0 {
		return rep, ErrNoSamples
	}

	var trainOpts []scoring.TrainOption
	if opts.Ridge > 0 {
		trainOpts = append(trainOpts, scoring.WithRidge(opts.Ridge))
	}
	m, err := scoring.Train(res.Samples, trainOpts...)
	if err != nil {
		return rep, fmt.Errorf("train: %w", err)
	}
	rep.Model = m
	rep.RSquared = m.RSquared
	rep.Importances = m.FeatureImportances()

	names := make([]string, 0, len(rep.Importances))
	for name := range rep.Importances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Info(ctx, "feature importance", logger.String("feature", name), logger.Float64("importance", rep.Importances[name]))
	}

	if opts.ModelPath != "" {
		if err := m.Save(opts.ModelPath); err != nil {
			return rep, fmt.Errorf("save model: %w", err)
		}
		rep.ModelPath = opts.ModelPath
		log.Info(ctx, "model saved", logger.String("path", opts.ModelPath), logger.Float64("r_squared", m.RSquared))
	}
	return rep, nil
}

func visualSpan(ratings []model.RatingEvent) (from, to time.Time) {
	from, to = ratings[0].VisualTime, ratings[0].VisualTime
	for _, r := range ratings[1:] {
		if r.VisualTime.Before(from) {
			from = r.VisualTime
		}
		if r.VisualTime.After(to) {
			to = r.VisualTime
		}
	}
	return from, to
}
