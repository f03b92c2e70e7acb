package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kb-portal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	key, err := CleanKey(" gallery/temp/abc/x.jpg ")
	require.NoError(t, err)
	assert.Equal(t, "gallery/temp/abc/x.jpg", key)

	for _, bad := range []string{"", "   ", "/etc/passwd", "../secret", "gallery/../../x", "a//b", "."} {
		_, err := CleanKey(bad)
		assert.Error(t, err, "key %q", bad)
	}
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root, "/storage/")
	require.NoError(t, err)

	url, err := store.Put(ctx, "gallery/articles/1/a.jpg", strings.NewReader("jpeg bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/storage/gallery/articles/1/a.jpg", url)

	data, err := os.ReadFile(filepath.Join(root, "gallery", "articles", "1", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	ok, err := store.Exists(ctx, "gallery/articles/1/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "gallery/articles/1/a.jpg"))
	ok, err = store.Exists(ctx, "gallery/articles/1/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, store.Delete(ctx, "gallery/articles/1/a.jpg"), "deleting a missing blob succeeds")

	_, err = store.Put(ctx, "../outside.jpg", strings.NewReader("x"), "")
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Put(cancelled, "gallery/late.jpg", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSelectsDriver(t *testing.T) {
	store, err := New(config.StorageConfig{Local: config.LocalConfig{Root: t.TempDir(), BaseURL: "/files"}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(config.StorageConfig{Driver: "s3"})
	assert.EqualError(t, err, `unsupported storage driver "s3"`)

	_, err = New(config.StorageConfig{Driver: "oss"})
	assert.Error(t, err)
}

func TestOSSURL(t *testing.T) {
	s := &OSSStore{endpoint: "https://oss-ap-southeast-5.aliyuncs.com", bucketName: "kb"}
	assert.Equal(t, "https://kb.oss-ap-southeast-5.aliyuncs.com/gallery/a.jpg", s.URL("/gallery/a.jpg"))

	s.publicBase = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/gallery/a.jpg", s.URL("gallery/a.jpg"))
}

func TestLocalStoreOpen(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "/storage")
	require.NoError(t, err)

	_, err = store.Put(ctx, "attachments/doc.pdf", strings.NewReader("%PDF-1.4 body"), "application/pdf")
	require.NoError(t, err)

	rc, err := store.Open(ctx, "attachments/doc.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))

	_, err = store.Open(ctx, "attachments/missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Open(ctx, "../outside.pdf")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
