package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "maps/1.rec", []byte("payload")))

	data, err := ReadAll(ctx, s, "maps/1.rec")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestLocalStoreOpenMissing(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreCreateRename(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	w, err := s.Create(ctx, "nested/dir/blob")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)

	// Invisible until the rename on Close.
	_, err = s.Open(ctx, "nested/dir/blob")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())

	data, err := ReadAll(ctx, s, "nested/dir/blob")
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(data))
}

func TestLocalStoreList(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "a/1", []byte("1")))
	require.NoError(t, s.Put(ctx, "a/2", []byte("2")))
	require.NoError(t, s.Put(ctx, "b/3", []byte("3")))

	names, err := s.List(ctx, "a/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2"}, names)
}

func TestLocalStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "blob", []byte("x")))
	require.NoError(t, s.Delete(ctx, "blob"))
	require.NoError(t, s.Delete(ctx, "blob"))

	_, err = s.Open(ctx, "blob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreEmptyBlob(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "empty", nil))

	data, err := ReadAll(ctx, s, "empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}
