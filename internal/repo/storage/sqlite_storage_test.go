package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage"
)

func TestSQLiteStorage(t *testing.T) {
	t.Parallel()

	s, err := NewSQLiteStorage(context.TODO(), SQLiteStorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "session.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	testStorageContract(t, s)
}
