package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
)

// checkExpiry rejects a stored token that is a JWT with an exp claim in the past.
// The signature is not verified; only the gateway can do that. Opaque tokens pass.
func checkExpiry(token string, now time.Time) error {
	var claims jwt.RegisteredClaims

	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil
		}

		return fmt.Errorf("parse token: %w", errors.Join(domain.ErrInvalidAuthToken, err))
	}

	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now) {
		return fmt.Errorf("token expired at %s: %w", claims.ExpiresAt.Format(time.RFC3339), domain.ErrInvalidAuthToken)
	}

	return nil
}
