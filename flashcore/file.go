package flashcore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/botmesh/core"
)

// fileExt marks flashcore entries so unrelated files in the data directory
// are ignored.
const fileExt = ".fc"

// FileAdapter stores each key as its own file under a data directory. Keys
// are URL-path-escaped into filenames, so any key string is representable.
// Writes are atomic (temp file and rename). A process-wide mutex serializes
// writers; concurrent readers go straight to the filesystem.
type FileAdapter struct {
	dir string
	mu  sync.Mutex
}

// NewFileAdapter creates the data directory if needed and returns an adapter
// over it.
func NewFileAdapter(dir string) (*FileAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create flashcore dir: %w", err)
	}
	return &FileAdapter{dir: dir}, nil
}

func (a *FileAdapter) path(key string) string {
	return filepath.Join(a.dir, url.PathEscape(key)+fileExt)
}

// Get reads the value for key, or core.ErrKeyNotFound.
func (a *FileAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(a.path(key))
	if os.IsNotExist(err) {
		return nil, core.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read flashcore key %q: %w", key, err)
	}
	return data, nil
}

// Set writes the value atomically.
func (a *FileAdapter) Set(ctx context.Context, key string, value []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	tmp, err := os.CreateTemp(a.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write flashcore key %q: %w", key, err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write flashcore key %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write flashcore key %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), a.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write flashcore key %q: %w", key, err)
	}
	return nil
}

// Delete removes the key's file; a missing key succeeds.
func (a *FileAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.Remove(a.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete flashcore key %q: %w", key, err)
	}
	return nil
}

// Has reports whether the key's file exists.
func (a *FileAdapter) Has(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(a.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat flashcore key %q: %w", key, err)
	}
	return true, nil
}

// Keys lists all stored keys with the given prefix, sorted.
func (a *FileAdapter) Keys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("list flashcore keys: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op; the adapter holds no open handles between calls.
func (a *FileAdapter) Close() error { return nil }

// WatchExternal feeds out-of-process changes of the data directory into a
// Watcher. The old value of a notification is always nil (the previous
// content is not recoverable once the file changed on disk); the new value is
// nil for deletions. Returns a stop function releasing the fsnotify watch.
//
// In-process changes made through a WatchedAdapter also pass through the
// filesystem, so pair WatchExternal only with a raw FileAdapter to avoid
// double notifications.
func (a *FileAdapter) WatchExternal(w *Watcher) (stop func(), err error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch flashcore dir: %w", err)
	}
	if err := fsw.Add(a.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch flashcore dir: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				name := filepath.Base(ev.Name)
				if !strings.HasSuffix(name, fileExt) {
					continue
				}
				key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
				if err != nil {
					continue
				}
				switch {
				case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
					w.Notify(key, nil, nil)
				case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
					data, err := os.ReadFile(ev.Name)
					if err != nil {
						continue
					}
					w.Notify(key, nil, data)
				}
			case _, ok := <-fsw.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return func() {
		fsw.Close()
		<-done
	}, nil
}

var _ core.FlashcoreAdapter = (*FileAdapter)(nil)
