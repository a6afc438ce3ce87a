package webapp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	context_ "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/context"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/guard"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/session"
)

const defaultNext = guard.DefaultFallbackPath

// View is the descriptor a client renders.
type View struct {
	View   string            `json:"view"`
	User   *domain.Principal `json:"user,omitempty"`
	Error  string            `json:"error,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

func (a *App) render(w http.ResponseWriter, r *http.Request, status int, view View) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(view); err != nil {
		a.log.ErrorContext(r.Context(), "failed to render view", "view", view.View, "error", err)
	}
}

// currentUser returns the principal placed by the guard, falling back to the store
// on public routes.
func (a *App) currentUser(r *http.Request) *domain.Principal {
	if principal, ok := context_.PrincipalFromContext(r.Context()); ok {
		return &principal
	}

	return a.sessions.Snapshot().Principal
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if a.sessions.Snapshot().Loading {
		status = "loading"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (a *App) home(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, View{View: "home", User: a.currentUser(r)}) //nolint:exhaustruct
}

func (a *App) notFound(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusNotFound, View{ //nolint:exhaustruct
		View:   "not_found",
		User:   a.currentUser(r),
		Params: map[string]string{"path": r.URL.Path},
	})
}

func (a *App) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusMethodNotAllowed, View{View: "not_found", Error: "method not allowed"}) //nolint:exhaustruct
}

func (a *App) dashboard(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, View{ //nolint:exhaustruct
		View:  "dashboard",
		User:  a.currentUser(r),
		Error: r.URL.Query().Get(guard.ErrorParam),
	})
}

// page renders a protected view, echoing the named URL params.
func (a *App) page(name string, params ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := View{View: name, User: a.currentUser(r)} //nolint:exhaustruct

		if len(params) > 0 {
			view.Params = make(map[string]string, len(params))
			for _, p := range params {
				view.Params[p] = chi.URLParam(r, p)
			}
		}

		a.render(w, r, http.StatusOK, view)
	}
}

// safeNext keeps redirects on this origin.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return defaultNext
	}

	return next
}

// statusFor maps an identity operation error to a response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUserAlreadyExists), errors.Is(err, session.ErrOperationInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidAuthToken):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

// errorMessage prefers the store's last error, which is what the user saw last.
// A rejected concurrent attempt never set it, so its own message wins.
func (a *App) errorMessage(err error) string {
	if errors.Is(err, session.ErrOperationInProgress) {
		return session.Message(err)
	}

	if msg := a.sessions.Snapshot().LastError; msg != "" {
		return msg
	}

	return session.Message(err)
}
