package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStorage(root)
	require.NoError(t, err)

	name, err := store.Save("alerts/export-1.csv", []byte("Alert ID\n"))
	require.NoError(t, err)
	assert.Equal(t, "alerts/export-1.csv", name)
	_, err = os.Stat(filepath.Join(root, "alerts", "export-1.csv"+partialSuffix))
	assert.True(t, os.IsNotExist(err))

	f, err := store.Open(name)
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "Alert ID\n", string(body))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLocalStorageRejectsEscapes(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../outside.csv", "/etc/passwd", "a/../../b.csv", ""} {
		_, err = store.Save(name, []byte("x"))
		assert.Error(t, err, name)
	}
	_, err = store.Open("../outside.csv")
	assert.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStorage(root)
	require.NoError(t, err)
	_, err = store.Save("old.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("fresh.pdf", []byte("fresh"))
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "old.pdf"), past, past))

	removed, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, removed)
	_, err = store.Open("fresh.pdf")
	assert.NoError(t, err)
}
