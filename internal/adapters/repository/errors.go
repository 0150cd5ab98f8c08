package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("no record found")
	ErrInvalidRecord = errors.New("invalid record")
	ErrStoreWrite    = errors.New("store write failure")
	ErrQuery         = errors.New("store query failure")
	ErrClosed        = errors.New("store closed")
	ErrUnavailable   = errors.New("store unavailable")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrMigrate       = errors.New("schema migration failure")
)
