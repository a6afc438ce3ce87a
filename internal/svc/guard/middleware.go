package guard

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	context_ "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/context"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/metrics"
)

// SnapshotSource provides the current session. *session.Store satisfies it.
type SnapshotSource interface {
	Snapshot() domain.Session
}

// Query parameters used on redirects.
const (
	NextParam  = "next"
	ErrorParam = "error"
)

// Option configures the middleware.
type Option func(*middleware)

type middleware struct {
	source  SnapshotSource
	paths   Paths
	log     logging.Logger
	metrics *metrics.Metrics
}

// WithPaths overrides the login and fallback targets.
func WithPaths(paths Paths) Option {
	return func(m *middleware) {
		m.paths = paths
	}
}

// WithMetrics counts decisions in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *middleware) {
		mw.metrics = m
	}
}

// Middleware returns a factory of chi-compatible middlewares. Each produced
// middleware guards its routes with the given required roles. The middleware only
// reads the session; it never calls the gateway.
func Middleware(source SnapshotSource, opts ...Option) func(required ...domain.Role) func(http.Handler) http.Handler {
	mw := &middleware{
		source: source,
		paths:  Paths{Login: DefaultLoginPath, Fallback: DefaultFallbackPath},
		log:    logging.GetLogger("svc.guard.middleware"),
	}

	for _, opt := range opts {
		opt(mw)
	}

	return func(required ...domain.Role) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mw.serve(w, r, next, required)
			})
		}
	}
}

func (mw *middleware) serve(w http.ResponseWriter, r *http.Request, next http.Handler, required Roles) {
	ctx := r.Context()
	session := mw.source.Snapshot()
	decision := mw.paths.Decide(session, required, r.URL.RequestURI())

	mw.metrics.ObserveGuardDecision(decision.Kind.String())
	mw.log.DebugContext(ctx, "guard decision", "path", r.URL.Path, "decision", decision.Kind.String())

	switch decision.Kind {
	case Pending:
		w.Header().Set("Retry-After", "1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"view": "loading"})
	case RedirectToLogin:
		http.Redirect(w, r, withQuery(decision.Target, NextParam, decision.ReturnPath), http.StatusSeeOther)
	case RedirectToFallback:
		http.Redirect(w, r, withQuery(decision.Target, ErrorParam, decision.Reason), http.StatusSeeOther)
	case Render:
		next.ServeHTTP(w, r.WithContext(context_.WithPrincipal(ctx, *session.Principal)))
	}
}

func withQuery(target, key, value string) string {
	return target + "?" + url.Values{key: []string{value}}.Encode()
}
