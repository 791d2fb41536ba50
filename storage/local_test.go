package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutObject(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "https://cdn.example.com/thumbs/")
	require.NoError(t, err)

	data := []byte{0x89, 0x50, 0x4E, 0x47, 0x01}
	url, err := store.PutObject(context.Background(), data, "generated_image_1700000000000_1", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/thumbs/generated_image_1700000000000_1.png", url)
	got, err := os.ReadFile(filepath.Join(dir, "generated_image_1700000000000_1.png"))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	leftovers, _ := filepath.Glob(filepath.Join(dir, "upload-*.tmp"))
	assert.Empty(t, leftovers, "temp files must be cleaned up")
}

func TestLocalStore_DefaultFileURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "")
	require.NoError(t, err)

	url, err := store.PutObject(context.Background(), []byte("x"), "k", "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"), url)
	assert.True(t, strings.HasSuffix(url, "/k.jpg"), url)
}

func TestLocalStore_TraversalStaysInRoot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "")
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), []byte("x"), "../../escape", "image/png")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "escape.png"))
	assert.NoError(t, err)
}

func TestLocalStore_CancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.PutObject(ctx, []byte("x"), "k", "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStore_EmptyKey(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), []byte("x"), "", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
