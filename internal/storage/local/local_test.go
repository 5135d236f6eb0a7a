package local

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"helpdesk/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalFileStore(t.TempDir(), "/files/", zap.NewNop())
	require.NoError(t, err)

	key, err := store.Save(ctx, "Tickets", "image/png", bytes.NewReader([]byte("png-bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "tickets/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "/files/"+key, store.URL(key))

	rc, mimeType, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, _, err = store.Open(ctx, key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), storage.ErrNotFound)
}

func TestLocalFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalFileStore(t.TempDir(), "/files", zap.NewNop())
	require.NoError(t, err)

	_, _, err = store.Open(context.Background(), "../../etc/passwd")
	assert.ErrorContains(t, err, "path traversal")
	assert.Equal(t, "", store.URL(""))
}
