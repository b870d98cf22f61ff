package flashcore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/botmesh/core"
)

// InMemoryAdapter is a volatile FlashcoreAdapter storing values in a process
// local map. It is safe for concurrent access and best suited for tests or
// bots that need no durability. Values are copied on read and write to
// prevent external mutation of internal state.
type InMemoryAdapter struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewInMemoryAdapter constructs an empty in-memory adapter.
func NewInMemoryAdapter() *InMemoryAdapter {
	return &InMemoryAdapter{values: make(map[string][]byte)}
}

// Get returns a copy of the value for key, or core.ErrKeyNotFound.
func (a *InMemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[key]
	if !ok {
		return nil, core.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (a *InMemoryAdapter) Set(ctx context.Context, key string, value []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key; deleting a missing key succeeds.
func (a *InMemoryAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.values, key)
	return nil
}

// Has reports whether key exists.
func (a *InMemoryAdapter) Has(ctx context.Context, key string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.values[key]
	return ok, nil
}

// Keys returns all keys with the given prefix, sorted.
func (a *InMemoryAdapter) Keys(ctx context.Context, prefix string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.values))
	for k := range a.values {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close clears the map.
func (a *InMemoryAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values = make(map[string][]byte)
	return nil
}

var _ core.FlashcoreAdapter = (*InMemoryAdapter)(nil)
