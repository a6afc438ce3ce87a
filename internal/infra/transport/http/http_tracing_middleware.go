package http

import (
	"net/http"

	"github.com/google/uuid"

	context_ "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/context"
)

const TraceIDHeader = "X-Request-ID"

// TracingMiddleware puts a trace id into the request context and echoes it in the
// response. An incoming X-Request-ID is reused, otherwise a UUIDv7 is generated.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceIDHeader)
		if traceID == "" {
			traceID = newTraceID()
		}

		w.Header().Set(TraceIDHeader, traceID)

		next.ServeHTTP(w, r.WithContext(context_.WithTraceID(r.Context(), traceID)))
	})
}

func newTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
