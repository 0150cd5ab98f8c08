package training

import "errors"

// Sentinel kinds for training errors.
var (
	ErrNoRatings = errors.New("no ratings in store")
	ErrNoSamples = errors.New("no rating matched a sensor record")
)
