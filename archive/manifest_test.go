package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryManifestCommitLatest(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryManifest()

	_, _, err := m.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	v1, err := m.Commit(ctx, []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	v2, err := m.Commit(ctx, []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	data, version, err := m.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.Equal(t, "second", string(data))
}
