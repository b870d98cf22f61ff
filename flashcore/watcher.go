package flashcore

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/botmesh/core"
)

// WatchFunc is invoked when a watched key changes. old is nil when the key
// did not exist before (or the previous value is unknown, as with external
// file edits); new is nil when the key was deleted.
type WatchFunc func(key string, old, new []byte)

// Watcher is a subscription registry for key change notifications. It is safe
// for concurrent use. Callbacks run synchronously on the goroutine performing
// the change; keep them fast or hand off to your own goroutine.
type Watcher struct {
	mu   sync.RWMutex
	next int
	subs map[string]map[int]WatchFunc
}

// NewWatcher creates an empty watcher.
func NewWatcher() *Watcher {
	return &Watcher{subs: make(map[string]map[int]WatchFunc)}
}

// On subscribes fn to changes of key and returns an unsubscribe function.
func (w *Watcher) On(key string, fn WatchFunc) (off func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.next
	w.next++
	if w.subs[key] == nil {
		w.subs[key] = make(map[int]WatchFunc)
	}
	w.subs[key][id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs[key], id)
		if len(w.subs[key]) == 0 {
			delete(w.subs, key)
		}
	}
}

// Notify invokes all subscribers of key.
func (w *Watcher) Notify(key string, old, new []byte) {
	w.mu.RLock()
	fns := make([]WatchFunc, 0, len(w.subs[key]))
	for _, fn := range w.subs[key] {
		fns = append(fns, fn)
	}
	w.mu.RUnlock()
	for _, fn := range fns {
		fn(key, old, new)
	}
}

// WatchedAdapter decorates a FlashcoreAdapter so Set and Delete notify a
// Watcher with the old and new values.
type WatchedAdapter struct {
	core.FlashcoreAdapter
	watcher *Watcher
}

// Watch wraps adapter with change notification.
func Watch(adapter core.FlashcoreAdapter) *WatchedAdapter {
	return &WatchedAdapter{FlashcoreAdapter: adapter, watcher: NewWatcher()}
}

// Watcher exposes the subscription registry.
func (a *WatchedAdapter) Watcher() *Watcher { return a.watcher }

// On subscribes to changes of key; shorthand for Watcher().On.
func (a *WatchedAdapter) On(key string, fn WatchFunc) (off func()) {
	return a.watcher.On(key, fn)
}

// Set stores the value and notifies subscribers with the previous value.
func (a *WatchedAdapter) Set(ctx context.Context, key string, value []byte) error {
	old, err := a.FlashcoreAdapter.Get(ctx, key)
	if err != nil && !errors.Is(err, core.ErrKeyNotFound) {
		return err
	}
	if err := a.FlashcoreAdapter.Set(ctx, key, value); err != nil {
		return err
	}
	a.watcher.Notify(key, old, value)
	return nil
}

// Delete removes the key and notifies subscribers. No notification fires for
// a key that did not exist.
func (a *WatchedAdapter) Delete(ctx context.Context, key string) error {
	old, err := a.FlashcoreAdapter.Get(ctx, key)
	if errors.Is(err, core.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := a.FlashcoreAdapter.Delete(ctx, key); err != nil {
		return err
	}
	a.watcher.Notify(key, old, nil)
	return nil
}

var _ core.FlashcoreAdapter = (*WatchedAdapter)(nil)
