package domain

import "errors"

var (
	// ErrNoAuthToken is returned when an authentication token is required but not provided.
	ErrNoAuthToken = errors.New("no auth token")
	// ErrInvalidAuthToken is returned when a token is rejected, malformed or expired.
	ErrInvalidAuthToken = errors.New("invalid auth token")
	// ErrUnauthorized is returned when the authenticated principal lacks permission.
	ErrUnauthorized = errors.New("unauthorized")
)

// TokenTypeBearer is the only token type issued by the gateway.
const TokenTypeBearer = "bearer"

// AuthTokenResponse is the gateway's response to a credential exchange.
type AuthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ErrorResponse is the error body returned by the gateway.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
