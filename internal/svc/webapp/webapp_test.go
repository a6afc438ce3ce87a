package webapp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/metrics"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/mocks"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/session"

	. "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/webapp"
)

var (
	ada  = domain.Principal{ID: "1", Email: "ada@example.com", FullName: "Ada", Role: domain.RoleUser}
	root = domain.Principal{ID: "2", Email: "root@example.com", FullName: "Root", Role: domain.RoleAdmin}
)

type testApp struct {
	handler http.Handler
	gw      *mocks.MockGateway
	store   *session.Store
	storage *storage.MemoryStorage
}

func setupApp(t *testing.T, restore bool) *testApp {
	t.Helper()

	gw := mocks.NewMockGateway(gomock.NewController(t))
	st := storage.NewMemoryStorage()
	m := metrics.New()
	store := session.NewStore(gw, st, session.WithMetrics(m))

	if restore {
		store.Restore(context.TODO())
	}

	app := New(Config{CORSOrigins: []string{"http://localhost:5173/"}, MinPasswordLength: 6}, store, m)

	return &testApp{handler: app.Router(), gw: gw, store: store, storage: st}
}

func (a *testApp) signIn(t *testing.T, principal domain.Principal) {
	t.Helper()

	a.gw.EXPECT().Exchange(gomock.Any(), principal.Email, "secret").Return("T-"+principal.ID, nil)
	a.gw.EXPECT().Me(gomock.Any(), "T-"+principal.ID).Return(principal, nil)

	_, err := a.store.Login(context.TODO(), principal.Email, "secret")
	require.NoError(t, err)
}

func (a *testApp) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request

	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) View {
	t.Helper()

	var view View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))

	return view
}

func TestRouter_PublicRoutes(t *testing.T) {
	t.Parallel()

	app := setupApp(t, true)

	rec := app.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, View{View: "home"}, decodeView(t, rec))

	rec = app.do(http.MethodGet, "/login?next=%2Ftastings", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, View{View: "login", Params: map[string]string{"next": "/tastings"}}, decodeView(t, rec))

	rec = app.do(http.MethodGet, "/register", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "register", decodeView(t, rec).View)

	rec = app.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = app.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "whiskey_session_operations_total")
}

func TestRouter_NotFound(t *testing.T) {
	t.Parallel()

	app := setupApp(t, true)

	rec := app.do(http.MethodGet, "/cellar/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, View{View: "not_found", Params: map[string]string{"path": "/cellar/unknown"}}, decodeView(t, rec))
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		restore      bool
		principal    *domain.Principal
		target       string
		wantStatus   int
		wantLocation string
		wantView     View
	}{
		{
			name:       "pending before restore",
			target:     "/dashboard",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:         "anonymous is sent to login",
			restore:      true,
			target:       "/collection/12",
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/login?next=%2Fcollection%2F12",
		},
		{
			name:       "authenticated sees detail view",
			restore:    true,
			principal:  &ada,
			target:     "/collection/12",
			wantStatus: http.StatusOK,
			wantView:   View{View: "whiskey_detail", User: &ada, Params: map[string]string{"id": "12"}},
		},
		{
			name:       "trailing slash",
			restore:    true,
			principal:  &ada,
			target:     "/tastings/",
			wantStatus: http.StatusOK,
			wantView:   View{View: "tastings", User: &ada},
		},
		{
			name:         "user on admin route falls back",
			restore:      true,
			principal:    &ada,
			target:       "/admin",
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/dashboard?error=insufficient+permission",
		},
		{
			name:       "admin on admin route",
			restore:    true,
			principal:  &root,
			target:     "/admin",
			wantStatus: http.StatusOK,
			wantView:   View{View: "admin", User: &root},
		},
		{
			name:       "dashboard shows carried reason",
			restore:    true,
			principal:  &ada,
			target:     "/dashboard?error=insufficient+permission",
			wantStatus: http.StatusOK,
			wantView:   View{View: "dashboard", User: &ada, Error: "insufficient permission"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupApp(t, tt.restore)
			if tt.principal != nil {
				app.signIn(t, *tt.principal)
			}

			rec := app.do(http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)

			switch tt.wantStatus {
			case http.StatusSeeOther:
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			case http.StatusOK:
				assert.Equal(t, tt.wantView, decodeView(t, rec))
			}
		})
	}
}

func TestRouter_Login(t *testing.T) {
	t.Parallel()

	t.Run("success redirects to next", func(t *testing.T) {
		t.Parallel()

		app := setupApp(t, true)
		app.gw.EXPECT().Exchange(gomock.Any(), ada.Email, "secret").Return("T1", nil)
		app.gw.EXPECT().Me(gomock.Any(), "T1").Return(ada, nil)

		rec := app.do(http.MethodPost, "/login", url.Values{
			"email": {ada.Email}, "password": {"secret"}, "next": {"/tastings/3"},
		})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/tastings/3", rec.Header().Get("Location"))
		assert.True(t, app.store.Snapshot().IsAuthenticated())

		rec = app.do(http.MethodGet, "/login?next=%2Fprofile", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/profile", rec.Header().Get("Location"))
	})

	t.Run("foreign next is ignored", func(t *testing.T) {
		t.Parallel()

		app := setupApp(t, true)
		app.gw.EXPECT().Exchange(gomock.Any(), ada.Email, "secret").Return("T1", nil)
		app.gw.EXPECT().Me(gomock.Any(), "T1").Return(ada, nil)

		rec := app.do(http.MethodPost, "/login", url.Values{
			"email": {ada.Email}, "password": {"secret"}, "next": {"//evil.example.com"},
		})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	})

	t.Run("rejected credentials", func(t *testing.T) {
		t.Parallel()

		app := setupApp(t, true)
		app.gw.EXPECT().Exchange(gomock.Any(), ada.Email, "wrong").Return("", domain.ErrInvalidCredentials)

		rec := app.do(http.MethodPost, "/login", url.Values{"email": {ada.Email}, "password": {"wrong"}})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		view := decodeView(t, rec)
		assert.Equal(t, "login", view.View)
		assert.Equal(t, "Incorrect email or password.", view.Error)
		assert.Equal(t, ada.Email, view.Params["email"])

		// showing the form again clears the stale error
		app.do(http.MethodGet, "/login", nil)
		assert.Empty(t, app.store.Snapshot().LastError)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()

		app := setupApp(t, true)

		rec := app.do(http.MethodPost, "/login", url.Values{"email": {ada.Email}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email and password are required.", decodeView(t, rec).Error)
	})
}

func TestRouter_Register(t *testing.T) {
	t.Parallel()

	valid := url.Values{
		"full_name":        {"Ada"},
		"email":            {ada.Email},
		"password":         {"secret"},
		"confirm_password": {"secret"},
	}

	with := func(key, value string) url.Values {
		form := url.Values{}
		for k, v := range valid {
			form[k] = v
		}

		form.Set(key, value)

		return form
	}

	t.Run("form preconditions", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			form    url.Values
			wantErr string
		}{
			{name: "missing name", form: with("full_name", ""), wantErr: "All fields are required."},
			{name: "mismatch", form: with("confirm_password", "secreT"), wantErr: "Passwords do not match."},
			{
				name:    "too short",
				form:    url.Values{"full_name": {"Ada"}, "email": {ada.Email}, "password": {"abc"}, "confirm_password": {"abc"}},
				wantErr: "Password is too short.",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				// no gateway expectations: the store must not be called
				app := setupApp(t, true)

				rec := app.do(http.MethodPost, "/register", tt.form)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Equal(t, tt.wantErr, decodeView(t, rec).Error)
			})
		}
	})

	t.Run("conflict", func(t *testing.T) {
		t.Parallel()

		app := setupApp(t, true)
		app.gw.EXPECT().Register(gomock.Any(), gomock.Any()).Return(domain.ErrUserAlreadyExists)

		rec := app.do(http.MethodPost, "/register", valid)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "An account with this email already exists.", decodeView(t, rec).Error)
		assert.False(t, app.store.Snapshot().IsAuthenticated())
	})

	t.Run("success signs in", func(t *testing.T) {
		t.Parallel()

		app := setupApp(t, true)
		app.gw.EXPECT().Register(gomock.Any(), domain.Registration{FullName: "Ada", Email: ada.Email, Password: "secret"}).Return(nil)
		app.gw.EXPECT().Exchange(gomock.Any(), ada.Email, "secret").Return("T1", nil)
		app.gw.EXPECT().Me(gomock.Any(), "T1").Return(ada, nil)

		rec := app.do(http.MethodPost, "/register", valid)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
		assert.Equal(t, &ada, app.store.Snapshot().Principal)
	})
}

func TestRouter_Logout(t *testing.T) {
	t.Parallel()

	app := setupApp(t, true)
	app.signIn(t, ada)

	app.gw.EXPECT().Logout(gomock.Any(), "T-1").Return(nil)

	rec := app.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.False(t, app.store.Snapshot().IsAuthenticated())
	assert.Zero(t, app.storage.Len())

	rec = app.do(http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRouter_Profile(t *testing.T) {
	t.Parallel()

	t.Run("update", func(t *testing.T) {
		t.Parallel()

		app := setupApp(t, true)
		app.signIn(t, ada)

		bio := "Speyside"
		app.gw.EXPECT().UpdateProfile(gomock.Any(), "T-1", domain.ProfilePatch{Bio: &bio}).
			Return(domain.Principal{ID: ada.ID, Email: ada.Email, Bio: bio}, nil)

		rec := app.do(http.MethodPost, "/profile", url.Values{"bio": {bio}})
		assert.Equal(t, http.StatusOK, rec.Code)

		want := ada
		want.Bio = bio

		assert.Equal(t, View{View: "profile", User: &want}, decodeView(t, rec))
		assert.Equal(t, &want, app.store.Snapshot().Principal)
	})

	t.Run("empty full name", func(t *testing.T) {
		t.Parallel()

		app := setupApp(t, true)
		app.signIn(t, ada)

		rec := app.do(http.MethodPost, "/profile", url.Values{"full_name": {"  "}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Full name is required.", decodeView(t, rec).Error)
	})

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()

		app := setupApp(t, true)
		app.signIn(t, ada)

		app.gw.EXPECT().UpdateProfile(gomock.Any(), "T-1", gomock.Any()).Return(domain.Principal{}, domain.ErrValidation)

		rec := app.do(http.MethodPost, "/profile", url.Values{"email": {"not-an-email"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		view := decodeView(t, rec)
		assert.Equal(t, &ada, view.User)
		assert.NotEmpty(t, view.Error)
	})
}

func TestRouter_CORS(t *testing.T) {
	t.Parallel()

	app := setupApp(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

// busySessions rejects every sign-in while still reporting an older failure.
type busySessions struct {
	Sessions
}

func (busySessions) Snapshot() domain.Session {
	return domain.Session{LastError: "Incorrect email or password."} //nolint:exhaustruct
}

func (busySessions) Login(context.Context, string, string) (domain.Principal, error) {
	return domain.Principal{}, session.ErrOperationInProgress
}

func (busySessions) Register(context.Context, string, string, string) (domain.Principal, error) {
	return domain.Principal{}, session.ErrOperationInProgress
}

func TestRouter_RejectedWhileBusy(t *testing.T) {
	t.Parallel()

	handler := New(Config{MinPasswordLength: 6}, busySessions{}, metrics.New()).Router() //nolint:exhaustruct

	tests := []struct {
		name string
		path string
		form url.Values
	}{
		{name: "login", path: "/login", form: url.Values{"email": {ada.Email}, "password": {"secret"}}},
		{
			name: "register",
			path: "/register",
			form: url.Values{
				"full_name": {"Ada"}, "email": {ada.Email}, "password": {"secret"}, "confirm_password": {"secret"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, "Another sign-in request is still running. Please wait.", decodeView(t, rec).Error)
		})
	}
}
