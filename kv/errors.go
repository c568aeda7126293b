package kv

import "errors"

// Common errors for key/value store operations.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidStoreType = errors.New("invalid store type")
	ErrClosed           = errors.New("store is closed")
)
