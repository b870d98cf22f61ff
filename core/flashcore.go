package core

import "context"

// FlashcoreAdapter is the pluggable key-value persistence contract. Keys are
// flat strings; namespacing is layered on top by the flashcore package.
// Values are opaque byte slices; the flashcore package provides typed JSON
// helpers.
//
// Implementations must be safe for concurrent use. Get and Has must return
// ErrKeyNotFound semantics as documented; Delete of a missing key is not an
// error.
type FlashcoreAdapter interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error
	// Has reports whether key exists.
	Has(ctx context.Context, key string) (bool, error)
	// Keys returns all keys with the given prefix, sorted. An empty prefix
	// returns every key.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases underlying resources. The adapter is unusable afterwards.
	Close() error
}
