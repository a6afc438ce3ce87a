package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
)

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n

	return n, err //nolint:wrapcheck
}

// LoggingMiddleware logs each request at DEBUG and its response at a level chosen
// by status code: ERROR for 5xx, WARN for 4xx, INFO otherwise.
func LoggingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		log.DebugContext(r.Context(), "request", slog.Group("http",
			"method", r.Method,
			"uri", r.RequestURI,
		))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		level := logging.LevelInfo

		switch {
		case rec.status >= http.StatusInternalServerError:
			level = logging.LevelError
		case rec.status >= http.StatusBadRequest:
			level = logging.LevelWarn
		}

		log.Log(r.Context(), level, "response", slog.Group("http",
			"method", r.Method,
			"uri", r.RequestURI,
			"status", rec.status,
			"bytes_sent", rec.bytes,
			"duration", time.Since(start).String(),
		))
	})
}
