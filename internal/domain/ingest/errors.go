package ingest

import "errors"

// Sentinel errors returned by the bridge.
var (
	// ErrMalformedPayload marks a bus event that cannot be decoded; the event is dropped.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrInvalidRequest marks a request/response submission the caller must fix.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownRoute is returned for a submission path that maps to no topic.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrUnknownTopic is returned for a bus message on a topic the bridge does not consume.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrPublish wraps a publisher failure on the request/response path.
	ErrPublish = errors.New("publish failed")
	// ErrNoPublisher is returned when submissions arrive on a bridge built without a publisher.
	ErrNoPublisher = errors.New("no publisher configured")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("bridge closed")
)
