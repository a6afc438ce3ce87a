package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	context_ "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/context"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
	http_ "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/transport/http"
)

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	var seen string

	handler := http_.TracingMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = context_.TraceIDFromContext(r.Context())
	}))

	t.Run("reuses incoming header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(http_.TraceIDHeader, "abc")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc", seen)
		assert.Equal(t, "abc", rec.Header().Get(http_.TraceIDHeader))
	})

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get(http_.TraceIDHeader))
	})
}

func TestRescueingMiddleware(t *testing.T) {
	t.Parallel()

	handler := http_.Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), logging.NewNopLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
