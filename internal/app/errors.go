package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrInvalidRating = errors.New("invalid rating submission")
	ErrNoVisual      = errors.New("no visual found")
)
