// Package state provides process-local ephemeral state with optional
// write-through persistence to a Flashcore adapter.
//
// State is a fast in-memory map for values that only need to live as long as
// the process: cooldowns, caches, wizard progress. Values set with Persist()
// are additionally written through to the bot's Flashcore adapter (under the
// "state/" namespace) and restored by Load on startup; persisted values
// round-trip through JSON, so restored numbers arrive as float64 and structs
// as map[string]any unless re-decoded by the caller.
//
// Fork returns a prefixed view so plugins can keep their keys isolated.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/botmesh/core"
	"github.com/hupe1980/botmesh/flashcore"
)

// persistNamespace prefixes persisted state keys in the adapter.
const persistNamespace = "state"

type entry struct {
	value   any
	persist bool
}

type shared struct {
	mu      sync.RWMutex
	values  map[string]entry
	adapter core.FlashcoreAdapter // nil disables persistence
}

// Store is a view over the process state map. Forked views share storage
// with their parent, differing only in key prefix.
type Store struct {
	shared *shared
	prefix string
}

// Options configures a Store.
type Options struct {
	// Adapter receives write-through persistence for values set with
	// Persist(). Nil makes Persist() a silent no-op beyond the in-memory set.
	Adapter core.FlashcoreAdapter
}

// New creates an empty state store.
func New(optFns ...func(o *Options)) *Store {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	adapter := opts.Adapter
	if adapter != nil {
		adapter = flashcore.Namespace(adapter, persistNamespace)
	}
	return &Store{shared: &shared{values: make(map[string]entry), adapter: adapter}}
}

// Fork returns a view whose keys are transparently prefixed with ns. Nested
// forks accumulate prefixes.
func (s *Store) Fork(ns string) *Store {
	return &Store{shared: s.shared, prefix: s.prefix + ns + "/"}
}

// SetOption annotates a Set call.
type SetOption func(*setConfig)

type setConfig struct {
	persist bool
}

// Persist marks the value for write-through persistence and startup restore.
func Persist() SetOption {
	return func(c *setConfig) { c.persist = true }
}

// Set stores value under key. With Persist() the value is also written to the
// backing adapter; a persistence failure leaves the in-memory value in place
// and is returned.
func (s *Store) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	var cfg setConfig
	for _, o := range opts {
		o(&cfg)
	}
	full := s.prefix + key

	s.shared.mu.Lock()
	s.shared.values[full] = entry{value: value, persist: cfg.persist}
	adapter := s.shared.adapter
	s.shared.mu.Unlock()

	if cfg.persist && adapter != nil {
		if err := flashcore.Set(ctx, adapter, full, value); err != nil {
			return fmt.Errorf("persist state %q: %w", full, err)
		}
	}
	return nil
}

// Get returns the value under key and whether it exists.
func (s *Store) Get(key string) (any, bool) {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	e, ok := s.shared.values[s.prefix+key]
	return e.value, ok
}

// Get returns the value under key type-asserted to T. A present value of a
// different dynamic type reports false.
func Get[T any](s *Store, key string) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Delete removes key, also clearing a persisted copy when one exists.
func (s *Store) Delete(ctx context.Context, key string) error {
	full := s.prefix + key

	s.shared.mu.Lock()
	e, existed := s.shared.values[full]
	delete(s.shared.values, full)
	adapter := s.shared.adapter
	s.shared.mu.Unlock()

	if existed && e.persist && adapter != nil {
		if err := adapter.Delete(ctx, full); err != nil {
			return fmt.Errorf("delete persisted state %q: %w", full, err)
		}
	}
	return nil
}

// Keys returns all keys visible in this view (prefix stripped), sorted.
func (s *Store) Keys() []string {
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	out := make([]string, 0, len(s.shared.values))
	for k := range s.shared.values {
		if strings.HasPrefix(k, s.prefix) {
			out = append(out, strings.TrimPrefix(k, s.prefix))
		}
	}
	sort.Strings(out)
	return out
}

// Load restores previously persisted values from the adapter. Existing
// in-memory values for the same keys are overwritten. Call once during
// startup before handlers run.
func (s *Store) Load(ctx context.Context) error {
	s.shared.mu.RLock()
	adapter := s.shared.adapter
	s.shared.mu.RUnlock()
	if adapter == nil {
		return nil
	}

	keys, err := adapter.Keys(ctx, "")
	if err != nil {
		return fmt.Errorf("load state keys: %w", err)
	}
	for _, k := range keys {
		data, err := adapter.Get(ctx, k)
		if err != nil {
			return fmt.Errorf("load state %q: %w", k, err)
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode state %q: %w", k, err)
		}
		s.shared.mu.Lock()
		s.shared.values[k] = entry{value: v, persist: true}
		s.shared.mu.Unlock()
	}
	return nil
}
