package scoring

import "errors"

// Sentinel errors for model training and loading.
var (
	ErrInsufficientSamples = errors.New("insufficient samples")
	ErrModelUnavailable    = errors.New("model unavailable")
	ErrSingularSystem      = errors.New("singular normal equations")
)
