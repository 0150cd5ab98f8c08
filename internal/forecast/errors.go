package forecast

import "errors"

// Sentinel kinds for forecast errors.
var (
	ErrNotEnoughData = errors.New("not enough data to forecast")
	ErrNoData        = errors.New("no records in lookback")
)
