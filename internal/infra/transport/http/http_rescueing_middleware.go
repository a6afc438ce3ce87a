package http

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
)

// RescueingMiddleware turns handler panics into a logged 500 response.
func RescueingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}

			//nolint:errorlint
			if p == http.ErrAbortHandler {
				panic(p)
			}

			log.ErrorContext(r.Context(), "request panic",
				slog.Group("http", "method", r.Method, "uri", r.RequestURI),
				slog.Group("error", "panic", p, "stack", string(debug.Stack())),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
