// Package guard decides whether a requested view may render for the current session.
package guard

import (
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
)

// Default redirect targets.
const (
	DefaultLoginPath    = "/login"
	DefaultFallbackPath = "/dashboard"
)

// ReasonInsufficientPermission is carried by role rejections.
const ReasonInsufficientPermission = "insufficient permission"

// Kind is the outcome of a guard decision.
type Kind int

const (
	Pending Kind = iota
	Render
	RedirectToLogin
	RedirectToFallback
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Render:
		return "render"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToFallback:
		return "redirect_to_fallback"
	default:
		return "unknown"
	}
}

// Roles is the set of roles a route requires. Empty means any authenticated principal.
type Roles []domain.Role

// Decision is the guard's verdict for one request.
type Decision struct {
	Kind Kind

	// Target is where to redirect. Empty unless Kind is a redirect.
	Target string

	// ReturnPath is the originally requested path, set for RedirectToLogin.
	ReturnPath string

	// Reason explains a RedirectToFallback.
	Reason string
}

// Paths configures redirect targets.
type Paths struct {
	Login    string
	Fallback string
}

// Decide evaluates the session snapshot against the required roles using the
// default redirect targets.
func Decide(session domain.Session, required Roles, path string) Decision {
	return Paths{Login: DefaultLoginPath, Fallback: DefaultFallbackPath}.Decide(session, required, path)
}

// Decide evaluates the session snapshot against the required roles. A session that
// is still loading is never redirected.
func (p Paths) Decide(session domain.Session, required Roles, path string) Decision {
	switch {
	case session.Loading:
		return Decision{Kind: Pending}
	case !session.IsAuthenticated():
		return Decision{Kind: RedirectToLogin, Target: p.Login, ReturnPath: path}
	case len(required) > 0 && !session.Principal.HasAnyRole(required...):
		return Decision{Kind: RedirectToFallback, Target: p.Fallback, Reason: ReasonInsufficientPermission}
	default:
		return Decision{Kind: Render}
	}
}
