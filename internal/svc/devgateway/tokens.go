package devgateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
)

// Claims are the access token claims. Subject is the account id.
type Claims struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) issueToken(u *domain.User) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new token id: %w", err)
	}

	now := s.now()

	claims := Claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{ //nolint:exhaustruct
			ID:        id.String(),
			Issuer:    s.Config.Issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.Config.TokenDuration)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return token, nil
}

// ValidateToken verifies signature, issuer and expiry, and rejects revoked tokens.
// Every failure wraps domain.ErrInvalidAuthToken.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (_ *Claims, err error) {
	defer func() {
		if err != nil {
			s.Log.DebugContext(ctx, "token rejected", "error", err)
		}
	}()

	if tokenString == "" {
		return nil, errors.Join(domain.ErrInvalidAuthToken, domain.ErrNoAuthToken)
	}

	var claims Claims

	_, err = jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) {
			return &s.SigningKey.PublicKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.Config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidAuthToken, err)
	}

	if s.revoked.isRevoked(claims.ID, s.now()) {
		return nil, fmt.Errorf("token %s revoked: %w", claims.ID, domain.ErrInvalidAuthToken)
	}

	return &claims, nil
}

// revocationList remembers logged out token ids until they expire.
type revocationList struct {
	m   sync.Mutex
	ids map[string]time.Time
}

func newRevocationList() *revocationList {
	return &revocationList{ids: make(map[string]time.Time)}
}

func (l *revocationList) revoke(id string, expiresAt, now time.Time) {
	l.m.Lock()
	defer l.m.Unlock()

	for other, exp := range l.ids {
		if !exp.After(now) {
			delete(l.ids, other)
		}
	}

	l.ids[id] = expiresAt
}

func (l *revocationList) isRevoked(id string, now time.Time) bool {
	l.m.Lock()
	defer l.m.Unlock()

	exp, ok := l.ids[id]

	return ok && exp.After(now)
}
