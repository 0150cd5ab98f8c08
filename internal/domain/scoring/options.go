package scoring

import "time"

const defaultRidge = 1e-2

type trainConfig struct {
	ridge float64
	now   func() time.Time
}

// TrainOption configures Train.
type TrainOption func(*trainConfig)

// WithRidge sets the L2 penalty applied to standardized weights. Zero gives
// ordinary least squares.
func WithRidge(lambda float64) TrainOption {
	return func(c *trainConfig) {
		if lambda >= 0 {
			c.ridge = lambda
		}
	}
}

// WithTrainClock overrides the clock used to stamp TrainedAt.
func WithTrainClock(now func() time.Time) TrainOption {
	return func(c *trainConfig) {
		if now != nil {
			c.now = now
		}
	}
}
