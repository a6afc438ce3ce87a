package devgateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/user"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/gateway"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/session"

	. "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/devgateway"
)

func setupServer(t *testing.T) (*httptest.Server, *gateway.HTTPGateway) {
	t.Helper()

	repo, err := user.NewSQLiteUserRepository(user.SQLiteUserRepositoryConfig{
		DatabasePath: filepath.Join(t.TempDir(), "users.db"),
	})
	require.NoError(t, err)

	svc := NewServiceWithKey(repo, testSigningKey(t), testConfig())
	t.Cleanup(func() { _ = svc.Close() })

	srv := httptest.NewServer(NewHTTPTransport(svc))
	t.Cleanup(srv.Close)

	gw := gateway.NewHTTPGateway(gateway.HTTPGatewayConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, srv.Client())

	return srv, gw
}

func TestHTTPTransport_Token(t *testing.T) {
	t.Parallel()

	srv, gw := setupServer(t)

	require.NoError(t, gw.Register(context.TODO(), domain.Registration{
		FullName: "Ada", Email: "ada@example.com", Password: "secret",
	}))

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
	}{
		{name: "valid credentials", form: url.Values{"username": {"ada@example.com"}, "password": {"secret"}}, wantStatus: http.StatusOK},
		{name: "wrong password", form: url.Values{"username": {"ada@example.com"}, "password": {"nope!!"}}, wantStatus: http.StatusUnauthorized},
		{name: "missing password", form: url.Values{"username": {"ada@example.com"}}, wantStatus: http.StatusUnprocessableEntity},
		{name: "missing username", form: url.Values{"password": {"secret"}}, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := srv.Client().Post(srv.URL+"/token", "application/x-www-form-urlencoded",
				strings.NewReader(tt.form.Encode()))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestHTTPTransport_GatewayErrors(t *testing.T) {
	t.Parallel()

	_, gw := setupServer(t)
	ctx := context.TODO()

	require.NoError(t, gw.Register(ctx, domain.Registration{FullName: "Ada", Email: "ada@example.com", Password: "secret"}))

	err := gw.Register(ctx, domain.Registration{FullName: "Ada", Email: "ADA@example.com", Password: "secret"})
	require.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	err = gw.Register(ctx, domain.Registration{FullName: "Bob", Email: "bob@example.com", Password: "abc"})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "password must be at least 6 characters", session.Message(err))

	_, err = gw.Exchange(ctx, "ada@example.com", "wrong!")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = gw.Me(ctx, "not-a-token")
	require.ErrorIs(t, err, domain.ErrInvalidAuthToken)
}

func TestHTTPTransport_SessionLifecycle(t *testing.T) {
	t.Parallel()

	_, gw := setupServer(t)
	ctx := context.TODO()

	st, err := storage.NewFileSystemStorage(ctx, storage.FileSystemStorageConfig{Basedir: t.TempDir(), Name: "session"})
	require.NoError(t, err)

	store := session.NewStore(gw, st)
	store.Restore(ctx)
	require.False(t, store.Snapshot().IsAuthenticated())

	principal, err := store.Register(ctx, "Ada", "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", principal.Email)
	assert.Equal(t, domain.RoleUser, principal.Role)
	assert.NotEmpty(t, principal.ID)

	bio := "Speyside, neat"
	updated, err := store.UpdateProfile(ctx, domain.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, bio, updated.Bio)

	// a second store over the same storage picks the session up without the gateway
	restored := session.NewStore(gw, st)
	restored.Restore(ctx)

	snap := restored.Snapshot()
	require.True(t, snap.IsAuthenticated())
	assert.Equal(t, principal.ID, snap.Principal.ID)
	assert.Equal(t, bio, snap.Principal.Bio)
	assert.Equal(t, store.Token(), restored.Token())

	token := restored.Token()
	restored.Logout(ctx)
	assert.False(t, restored.Snapshot().IsAuthenticated())

	_, ok, err := st.Get(ctx, storage.KeyAuthToken)
	require.NoError(t, err)
	assert.False(t, ok)

	// the gateway no longer accepts the revoked token
	_, err = gw.Me(ctx, token)
	require.ErrorIs(t, err, domain.ErrInvalidAuthToken)

	_, err = restored.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.True(t, restored.Snapshot().IsAuthenticated())
}

func TestHTTPTransport_Healthz(t *testing.T) {
	t.Parallel()

	srv, _ := setupServer(t)

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
