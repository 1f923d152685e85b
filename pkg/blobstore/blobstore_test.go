package blobstore_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog/pkg/blobstore"
)

func TestDiskStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := blobstore.NewDiskStore(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	locator, err := store.Save("photo.jpg", strings.NewReader("image bytes"))
	require.NoError(t, err)

	// The locator resolves under the base URL, trailing slash stripped.
	assert.True(t, strings.HasPrefix(locator, "http://localhost:8080/uploads/"))
	assert.True(t, strings.HasSuffix(locator, "-photo.jpg"))

	name := strings.TrimPrefix(locator, "http://localhost:8080/uploads/")
	content, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(content))
}

func TestDiskStore_Save_UniqueNames(t *testing.T) {
	store, err := blobstore.NewDiskStore(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	first, err := store.Save("same.png", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := store.Save("same.png", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDiskStore_Save_UnsupportedFormat(t *testing.T) {
	store, err := blobstore.NewDiskStore(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	for _, name := range []string{"doc.pdf", "archive.zip", "noextension"} {
		_, err := store.Save(name, strings.NewReader("data"))
		assert.Error(t, err, name)
	}
}

func TestDiskStore_Save_AllowedFormats(t *testing.T) {
	store, err := blobstore.NewDiskStore(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)

	for _, name := range []string{"a.jpg", "b.jpeg", "c.png", "d.PNG"} {
		_, err := store.Save(name, strings.NewReader("data"))
		assert.NoError(t, err, name)
	}
}

func TestNewDiskStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	_, err := blobstore.NewDiskStore(dir, "http://localhost:8080/uploads")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
