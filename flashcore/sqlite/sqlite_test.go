package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/botmesh/core"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(filepath.Join(t.TempDir(), "flashcore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAdapterCRUD(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	_, err := a.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)

	require.NoError(t, a.Set(ctx, "k", []byte("v1")))
	v, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	// Upsert.
	require.NoError(t, a.Set(ctx, "k", []byte("v2")))
	v, err = a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)

	ok, err := a.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, a.Delete(ctx, "k"))
	ok, err = a.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, a.Delete(ctx, "k"))
}

func TestAdapterKeysPrefix(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)

	for _, k := range []string{"xp/u1", "xp/u2", "mod/warns", "xp_raw"} {
		require.NoError(t, a.Set(ctx, k, []byte("v")))
	}

	keys, err := a.Keys(ctx, "xp/")
	require.NoError(t, err)
	assert.Equal(t, []string{"xp/u1", "xp/u2"}, keys)

	// LIKE metacharacters in the prefix are treated literally.
	keys, err = a.Keys(ctx, "xp_")
	require.NoError(t, err)
	assert.Equal(t, []string{"xp_raw"}, keys)

	all, err := a.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestAdapterPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "flashcore.db")

	a, err := New(path)
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, "durable", []byte("yes")))
	require.NoError(t, a.Close())

	b, err := New(path)
	require.NoError(t, err)
	defer b.Close()

	v, err := b.Get(ctx, "durable")
	require.NoError(t, err)
	assert.Equal(t, []byte("yes"), v)
}
