package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage"
)

func setupFileSystemStorage(t *testing.T) *FileSystemStorage {
	t.Helper()

	s, err := NewFileSystemStorage(context.TODO(), FileSystemStorageConfig{
		Basedir: filepath.Join(t.TempDir(), "storage"),
		Name:    "session",
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestFileSystemStorage(t *testing.T) {
	t.Parallel()

	testStorageContract(t, setupFileSystemStorage(t))
}

func TestFileSystemStorage_Persists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileSystemStorageConfig{Basedir: dir, Name: "session"}

	first, err := NewFileSystemStorage(context.TODO(), cfg)
	require.NoError(t, err)
	require.NoError(t, first.Set(context.TODO(), map[string]string{KeyAuthToken: "T1"}))

	second, err := NewFileSystemStorage(context.TODO(), cfg)
	require.NoError(t, err)

	token, ok, err := second.Get(context.TODO(), KeyAuthToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T1", token)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	assert.ElementsMatch(t, []string{"session.json", "session.json.lock"}, names)
}

func TestFileSystemStorage_CorruptDocument(t *testing.T) {
	t.Parallel()

	s := setupFileSystemStorage(t)
	require.NoError(t, os.WriteFile(s.Filename(), []byte("{not json"), 0o600))

	_, _, err := s.Get(context.TODO(), KeyAuthToken)
	require.ErrorIs(t, err, ErrCorruptDocument)

	// clearing recovers the document
	require.NoError(t, s.Delete(context.TODO(), KeyAuthToken, KeyCurrentUser))

	_, ok, err := s.Get(context.TODO(), KeyAuthToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(s.Filename(), []byte("{not json"), 0o600))
	require.NoError(t, s.Set(context.TODO(), map[string]string{KeyAuthToken: "T2"}))

	token, ok, err := s.Get(context.TODO(), KeyAuthToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T2", token)
}
