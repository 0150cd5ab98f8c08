// Package simulate drives a running service with synthetic sensor readings,
// motion events and visitor ratings.
package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/smartart/pkg/logger"
)

// Publisher puts a payload on a topic. Both the HTTP client and the MQTT bus
// satisfy it.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Rater reads the latest visual and rates it.
type Rater interface {
	LatestVisual(ctx context.Context) (string, error)
	Rate(ctx context.Context, user string, rating int, visualTime string) error
}

// Run publishes readings until cfg.Count is reached or ctx is done. A nil
// rater disables rating. Individual failures are counted, not returned.
func Run(ctx context.Context, cfg Config, pub Publisher, rater Rater) (Stats, error) {
	cfg.defaults()
	log := logger.Get().Named("simulate")
	gen := NewGenerator(cfg.Seed, cfg.Users)
	stats := Stats{StartTime: time.Now()}

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("count", cfg.Count),
		logger.Duration("interval", cfg.Interval),
		logger.Float64("motionProbability", cfg.MotionProbability),
		logger.Int("rateEvery", cfg.RateEvery),
		logger.Int("users", cfg.Users))

	var ticker *time.Ticker
	if cfg.Interval > 0 {
		ticker = time.NewTicker(cfg.Interval)
		defer ticker.Stop()
	}

	for i := 1; cfg.Count == 0 || i <= cfg.Count; i++ {
		if err := ctx.Err(); err != nil {
			break
		}

		reading := gen.Reading()
		if err := publishJSON(ctx, pub, cfg.SensorTopic, fieldsOf(reading)); err != nil {
			stats.PublishFailed++
			log.Warn(ctx, "sensor publish failed", logger.Error(err))
		} else {
			stats.Readings++
			log.Debug(ctx, "published reading",
				logger.Float64("temperature", reading.Temperature),
				logger.Float64("humidity", reading.Humidity),
				logger.Float64("light", reading.Light))
		}

		if gen.Motion(cfg.MotionProbability) {
			if err := publishJSON(ctx, pub, cfg.MotionTopic, map[string]int{"motion": 1}); err != nil {
				stats.PublishFailed++
				log.Warn(ctx, "motion publish failed", logger.Error(err))
			} else {
				stats.MotionEvents++
			}
		}

		if rater != nil && cfg.RateEvery > 0 && i%cfg.RateEvery == 0 {
			if err := rate(ctx, gen, rater); err != nil {
				stats.RateFailed++
				log.Warn(ctx, "rating skipped", logger.Error(err))
			} else {
				stats.Ratings++
			}
		}

		if ticker != nil && (cfg.Count == 0 || i < cfg.Count) {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "simulation finished",
		logger.Int("readings", stats.Readings),
		logger.Int("motionEvents", stats.MotionEvents),
		logger.Int("ratings", stats.Ratings),
		logger.Int("publishFailed", stats.PublishFailed),
		logger.Int("rateFailed", stats.RateFailed),
		logger.Duration("duration", stats.Duration))

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return stats, err
	}
	return stats, nil
}

func rate(ctx context.Context, gen *Generator, rater Rater) error {
	visual, err := rater.LatestVisual(ctx)
	if err != nil {
		return err
	}
	user, rating := gen.Rating()
	return rater.Rate(ctx, user, rating, visual)
}

func publishJSON(ctx context.Context, pub Publisher, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return pub.Publish(ctx, topic, payload)
}
