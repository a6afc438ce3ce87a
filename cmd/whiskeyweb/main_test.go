package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/gateway"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/webapp"
)

func TestNewApp_RestoresBeforeServing(t *testing.T) {
	t.Parallel()

	cfg := Config{ //nolint:exhaustruct
		Gateway: gateway.HTTPGatewayConfig{BaseURL: "http://127.0.0.1:1"},
		Web:     webapp.Config{CORSOrigins: []string{"http://localhost:5173"}, MinPasswordLength: 6},
	}

	router := newApp(context.TODO(), cfg, storage.NewMemoryStorage()).Router()

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "protected route redirects instead of loading", method: http.MethodGet, path: "/dashboard", want: http.StatusSeeOther},
		{name: "login form is served", method: http.MethodGet, path: "/login", want: http.StatusOK},
		{name: "health reports ok", method: http.MethodGet, path: "/healthz", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.want, rec.Code)
			assert.NotContains(t, rec.Body.String(), `"loading"`)
		})
	}
}
