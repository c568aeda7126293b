package kv

import "context"

// Store is a durable string key/value store. It plays the role a browser's
// local storage plays for a single-page app: small values, one writer.
type Store interface {
	// Get returns the value stored under key.
	// The second return value is false if the key is absent (not an error).
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Close closes the store and releases any resources.
	Close() error
}
