package flashcore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/botmesh/core"
)

// Separator joins namespace parts and keys.
const Separator = "/"

// namespaced is a key-prefixing view over another adapter. Views share the
// underlying storage; Close on a view is a no-op.
type namespaced struct {
	inner  core.FlashcoreAdapter
	prefix string
}

// Namespace returns a view of adapter where every key is transparently
// prefixed with the joined parts ("xp", "guild-1" -> "xp/guild-1/<key>").
// Plugins should namespace by their own name to avoid clashing with the
// application or each other.
func Namespace(adapter core.FlashcoreAdapter, parts ...string) core.FlashcoreAdapter {
	if len(parts) == 0 {
		return adapter
	}
	return &namespaced{inner: adapter, prefix: strings.Join(parts, Separator) + Separator}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

func (n *namespaced) Has(ctx context.Context, key string) (bool, error) {
	return n.inner.Has(ctx, n.prefix+key)
}

func (n *namespaced) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := n.inner.Keys(ctx, n.prefix+prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, n.prefix))
	}
	return out, nil
}

// Close is a no-op; the underlying adapter stays open for other views.
func (n *namespaced) Close() error { return nil }

// Get reads and JSON-decodes a value. Returns core.ErrKeyNotFound when the
// key does not exist.
func Get[T any](ctx context.Context, adapter core.FlashcoreAdapter, key string) (T, error) {
	var out T
	data, err := adapter.Get(ctx, key)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode flashcore value %q: %w", key, err)
	}
	return out, nil
}

// GetOr reads a value like Get but returns def when the key does not exist.
func GetOr[T any](ctx context.Context, adapter core.FlashcoreAdapter, key string, def T) (T, error) {
	out, err := Get[T](ctx, adapter, key)
	if errors.Is(err, core.ErrKeyNotFound) {
		return def, nil
	}
	return out, err
}

// Set JSON-encodes and stores a value.
func Set[T any](ctx context.Context, adapter core.FlashcoreAdapter, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode flashcore value %q: %w", key, err)
	}
	return adapter.Set(ctx, key, data)
}

var _ core.FlashcoreAdapter = (*namespaced)(nil)
