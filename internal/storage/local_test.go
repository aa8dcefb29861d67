package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/resumedrop/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalTestClient(t *testing.T) *LocalClient {
	t.Helper()
	client, err := NewLocalClient(config.LocalStorageConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(context.Background()))
	return client
}

func TestLocalPutGetDelete(t *testing.T) {
	client := newLocalTestClient(t)
	ctx := context.Background()
	data := []byte("%PDF-1.4 content")

	require.NoError(t, client.Put(ctx, "123-r.pdf-abcd", bytes.NewReader(data), int64(len(data)), "application/pdf"))

	rc, err := client.Get(ctx, "123-r.pdf-abcd")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got)

	require.NoError(t, client.Delete(ctx, "123-r.pdf-abcd"))
	_, err = client.Get(ctx, "123-r.pdf-abcd")
	assert.Error(t, err)
}

func TestLocalGetMissing(t *testing.T) {
	client := newLocalTestClient(t)

	_, err := client.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestLocalKeyCannotEscapeDir(t *testing.T) {
	client := newLocalTestClient(t)
	ctx := context.Background()

	outside := filepath.Join(filepath.Dir(client.Bucket()), "escape.txt")
	require.NoError(t, client.Put(ctx, "../escape.txt", bytes.NewReader([]byte("x")), 1, "text/plain"))

	_, err := os.Stat(outside)
	assert.True(t, os.IsNotExist(err), "object must not be written outside the upload dir")

	_, err = os.Stat(filepath.Join(client.Bucket(), "escape.txt"))
	assert.NoError(t, err)
}

func TestLocalEnsureBucketCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	client, err := NewLocalClient(config.LocalStorageConfig{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, client.EnsureBucket(context.Background()))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalRequiresDir(t *testing.T) {
	_, err := NewLocalClient(config.LocalStorageConfig{Dir: "  "})
	assert.Error(t, err)
}
