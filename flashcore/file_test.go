package flashcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/botmesh/core"
)

func TestFileAdapterCRUD(t *testing.T) {
	ctx := context.Background()
	a, err := NewFileAdapter(t.TempDir())
	require.NoError(t, err)

	_, err = a.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)

	require.NoError(t, a.Set(ctx, "welcome/message", []byte("hi there")))
	v, err := a.Get(ctx, "welcome/message")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi there"), v)

	// Overwrite.
	require.NoError(t, a.Set(ctx, "welcome/message", []byte("updated")))
	v, err = a.Get(ctx, "welcome/message")
	require.NoError(t, err)
	assert.Equal(t, []byte("updated"), v)

	ok, err := a.Has(ctx, "welcome/message")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, a.Delete(ctx, "welcome/message"))
	ok, err = a.Has(ctx, "welcome/message")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, a.Delete(ctx, "welcome/message"))
}

func TestFileAdapterKeyEscaping(t *testing.T) {
	ctx := context.Background()
	a, err := NewFileAdapter(t.TempDir())
	require.NoError(t, err)

	// Keys with separators and odd characters must round-trip.
	keys := []string{"a/b/c", "with space", "percent%sign", "dots..."}
	for _, k := range keys {
		require.NoError(t, a.Set(ctx, k, []byte(k)))
	}

	got, err := a.Keys(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, keys, got)

	for _, k := range keys {
		v, err := a.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, []byte(k), v)
	}
}

func TestFileAdapterKeysPrefix(t *testing.T) {
	ctx := context.Background()
	a, err := NewFileAdapter(t.TempDir())
	require.NoError(t, err)

	for _, k := range []string{"xp/u1", "xp/u2", "mod/warns"} {
		require.NoError(t, a.Set(ctx, k, []byte("v")))
	}

	keys, err := a.Keys(ctx, "xp/")
	require.NoError(t, err)
	assert.Equal(t, []string{"xp/u1", "xp/u2"}, keys)
}

func TestFileAdapterSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a, err := NewFileAdapter(dir)
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, "persisted", []byte("value")))
	require.NoError(t, a.Close())

	b, err := NewFileAdapter(dir)
	require.NoError(t, err)
	v, err := b.Get(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)
}

func TestFileAdapterWatchExternal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer, err := NewFileAdapter(dir)
	require.NoError(t, err)

	reader, err := NewFileAdapter(dir)
	require.NoError(t, err)

	w := NewWatcher()
	stop, err := reader.WatchExternal(w)
	require.NoError(t, err)
	defer stop()

	changed := make(chan []byte, 4)
	off := w.On("shared", func(key string, old, new []byte) {
		changed <- new
	})
	defer off()

	// A write by another adapter instance lands via fsnotify.
	require.NoError(t, writer.Set(ctx, "shared", []byte("external")))

	select {
	case v := <-changed:
		assert.Equal(t, []byte("external"), v)
	case <-time.After(2 * time.Second):
		t.Fatal("no watch notification for external write")
	}

	require.NoError(t, writer.Delete(ctx, "shared"))
	select {
	case v := <-changed:
		assert.Nil(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("no watch notification for external delete")
	}
}
