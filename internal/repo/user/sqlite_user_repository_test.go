package user_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"

	. "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/user"
)

func setupRepo(t *testing.T) Repository {
	t.Helper()

	repo, err := SQLiteUserRepositoryFactory(SQLiteUserRepositoryConfig{
		DatabasePath: filepath.Join(t.TempDir(), "users.db"),
	})()
	require.NoError(t, err)

	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestSQLiteUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	repo := setupRepo(t)
	ctx := context.TODO()

	u := &domain.User{Email: "a@x.io", FullName: "Ada", PasswordHash: []byte("hash")}
	require.NoError(t, repo.CreateUser(ctx, u))

	assert.NotEmpty(t, u.ID)
	assert.NotZero(t, u.CreatedAt)
	assert.Equal(t, domain.RoleUser, u.Role)

	byEmail, ok, err := repo.GetUserByEmail(ctx, "A@X.io")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u, byEmail)

	byID, ok, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u, byID)

	_, ok, err = repo.GetUserByEmail(ctx, "nobody@x.io")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteUserRepository_Duplicate(t *testing.T) {
	t.Parallel()

	repo := setupRepo(t)
	ctx := context.TODO()

	require.NoError(t, repo.CreateUser(ctx, &domain.User{Email: "a@x.io", FullName: "Ada", PasswordHash: []byte("h")}))

	err := repo.CreateUser(ctx, &domain.User{Email: "a@x.io", FullName: "Other", PasswordHash: []byte("h")})
	require.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestSQLiteUserRepository_Update(t *testing.T) {
	t.Parallel()

	repo := setupRepo(t)
	ctx := context.TODO()

	u := &domain.User{Email: "a@x.io", FullName: "Ada", PasswordHash: []byte("h")}
	require.NoError(t, repo.CreateUser(ctx, u))

	u.Bio = "peated"
	u.FullName = "Ada L."
	require.NoError(t, repo.UpdateUser(ctx, u))

	got, ok, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "peated", got.Bio)
	assert.Equal(t, "Ada L.", got.FullName)

	err = repo.UpdateUser(ctx, &domain.User{ID: "missing", Email: "m@x.io"})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}
