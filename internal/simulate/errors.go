package simulate

import "errors"

// Sentinel kinds for simulator errors.
var (
	ErrUnhealthy    = errors.New("service health check failed")
	ErrUnknownTopic = errors.New("no route for topic")
	ErrStatus       = errors.New("unexpected response status")
	ErrNoVisual     = errors.New("no visual available")
)
