package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage"
)

// testStorageContract runs the behaviour every Storage implementation must share.
func testStorageContract(t *testing.T, s Storage) {
	t.Helper()

	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		value, ok, err := s.Get(ctx, KeyAuthToken)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("set writes all keys", func(t *testing.T) {
		err := s.Set(ctx, map[string]string{
			KeyAuthToken:   "T1",
			KeyCurrentUser: `{"id":"1","email":"a@x"}`,
		})
		require.NoError(t, err)

		token, ok, err := s.Get(ctx, KeyAuthToken)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "T1", token)

		user, ok, err := s.Get(ctx, KeyCurrentUser)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"id":"1","email":"a@x"}`, user)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, map[string]string{KeyAuthToken: "T2"}))

		token, ok, err := s.Get(ctx, KeyAuthToken)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "T2", token)

		_, ok, err = s.Get(ctx, KeyCurrentUser)
		require.NoError(t, err)
		assert.True(t, ok, "untouched key must survive")
	})

	t.Run("delete removes keys", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, KeyAuthToken, KeyCurrentUser))

		for _, key := range []string{KeyAuthToken, KeyCurrentUser} {
			_, ok, err := s.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok, key)
		}
	})

	t.Run("delete missing key", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "nope"))
	})
}
