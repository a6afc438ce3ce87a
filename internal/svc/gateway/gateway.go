// Package gateway talks to the Backend Gateway that owns accounts and issues tokens.
package gateway

import (
	"context"
	"fmt"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
)

// Gateway is the remote identity service used by the session store.
type Gateway interface {
	// Exchange trades credentials for an opaque bearer token.
	// Returns ErrInvalidCredentials when the gateway rejects them.
	Exchange(ctx context.Context, email, password string) (string, error)

	// Me resolves a token to the principal it belongs to.
	// Returns ErrInvalidAuthToken when the token is rejected.
	Me(ctx context.Context, token string) (domain.Principal, error)

	// Register creates an account. It does not authenticate.
	// Returns ErrUserAlreadyExists on a duplicate email.
	Register(ctx context.Context, reg domain.Registration) error

	// Logout revokes the token server side, where supported.
	Logout(ctx context.Context, token string) error

	// UpdateProfile applies patch to the token's account and returns the updated principal.
	UpdateProfile(ctx context.Context, token string, patch domain.ProfilePatch) (domain.Principal, error)
}

// StatusError is a non-success gateway response. Classified errors are joined with it,
// so errors.As recovers the server-provided detail.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("gateway status %d", e.StatusCode)
	}

	return fmt.Sprintf("gateway status %d: %s", e.StatusCode, e.Detail)
}
