package logging

import (
	"context"
	"log/slog"

	context_ "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/context"
)

// TracingHandler adds the request trace id and the acting principal id from the
// context to every record before delegating.
type TracingHandler struct {
	h slog.Handler
}

var _ slog.Handler = (*TracingHandler)(nil)

// NewTracingHandler wraps h.
func NewTracingHandler(h slog.Handler) *TracingHandler {
	return &TracingHandler{h: h}
}

func (h *TracingHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		r.AddAttrs(slog.Group("trace", slog.String("id", traceID)))
	}

	if principal, ok := context_.PrincipalFromContext(ctx); ok {
		r.AddAttrs(slog.Group("principal", slog.String("id", principal.ID)))
	}

	//nolint:wrapcheck
	return h.h.Handle(ctx, r)
}

func (h *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewTracingHandler(h.h.WithAttrs(attrs))
}

func (h *TracingHandler) WithGroup(name string) slog.Handler {
	return NewTracingHandler(h.h.WithGroup(name))
}

func (h *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}
