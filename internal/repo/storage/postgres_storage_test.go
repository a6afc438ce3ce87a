//go:build integration || all

package storage_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	. "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage"
)

func TestPostgresStorage(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	s, err := NewPostgresStorage(context.TODO(), PostgresStorageConfig{
		DSN:   dsn,
		Owner: "test-" + uuid.NewString(),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	testStorageContract(t, s)
}
