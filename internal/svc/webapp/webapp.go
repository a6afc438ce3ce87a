// Package webapp serves the companion's route surface. Views are JSON descriptors;
// all identity truth lives in the session store.
package webapp

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/metrics"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/guard"
)

// Sessions is the part of the session store the views use.
type Sessions interface {
	Snapshot() domain.Session
	Login(ctx context.Context, email, password string) (domain.Principal, error)
	Logout(ctx context.Context)
	Register(ctx context.Context, fullName, email, password string) (domain.Principal, error)
	UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.Principal, error)
	ClearError()
}

// Config holds web companion settings.
type Config struct {
	// CORSOrigins lists origins allowed to call the companion from a browser
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// MinPasswordLength is enforced by the registration form
	MinPasswordLength int `env:"MIN_PASSWORD_LENGTH" envDefault:"6"`
}

// App wires views to the session store.
type App struct {
	cfg      Config
	sessions Sessions
	metrics  *metrics.Metrics
	log      logging.Logger
}

func New(cfg Config, sessions Sessions, m *metrics.Metrics) *App {
	return &App{
		cfg:      cfg,
		sessions: sessions,
		metrics:  m,
		log:      logging.GetLogger("svc.webapp"),
	}
}

// Router builds the route surface.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{ //nolint:exhaustruct
		AllowedOrigins:   trimOrigins(a.cfg.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(a.notFound)
	r.MethodNotAllowed(a.methodNotAllowed)

	r.Get("/healthz", a.healthz)

	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler())
	}

	// public
	r.Get("/", a.home)
	r.Get("/login", a.loginForm)
	r.Post("/login", a.login)
	r.Get("/register", a.registerForm)
	r.Post("/register", a.register)
	r.Post("/logout", a.logout)

	requires := guard.Middleware(a.sessions, guard.WithMetrics(a.metrics))

	// any authenticated principal
	r.Group(func(r chi.Router) {
		r.Use(requires())

		r.Get("/dashboard", a.dashboard)
		r.Get("/collection", a.page("collection"))
		r.Get("/collection/{id}", a.page("whiskey_detail", "id"))
		r.Get("/tastings", a.page("tastings"))
		r.Get("/tastings/{id}", a.page("tasting_detail", "id"))
		r.Get("/profile", a.profile)
		r.Post("/profile", a.updateProfile)
	})

	// role-gated
	r.Group(func(r chi.Router) {
		r.Use(requires(domain.RoleAdmin))

		r.Get("/admin", a.page("admin"))
	})

	return r
}

func trimOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))

	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}

	return out
}
