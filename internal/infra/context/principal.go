package context

import (
	"context"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
)

const contextKeyPrincipal = contextKey("principal")

// PrincipalFromContext returns the principal admitted for the current request.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(contextKeyPrincipal).(domain.Principal)

	return principal, ok
}

// WithPrincipal returns a copy of ctx carrying principal.
func WithPrincipal(ctx context.Context, principal domain.Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, principal)
}
