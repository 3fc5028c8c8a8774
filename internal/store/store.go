package store

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is the durable key-value contract the ledger persists through.
// Consumers define this interface, not the storage implementations.
type Store interface {
	// Get returns the value under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set writes the value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value string) error

	// Delete removes the key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error
}
