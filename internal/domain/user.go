package domain

import "errors"

var (
	// ErrUserAlreadyExists is returned when registering an email that already has an account.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when looking up a non-existent account.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the email/password combination is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation is returned when the gateway rejects a request as malformed.
	ErrValidation = errors.New("validation failed")
)

// User is an account record as persisted by the development gateway.
type User struct {
	ID           string // Opaque account identifier
	Email        string // Login email, unique per account
	FullName     string
	Role         Role
	Bio          string
	AvatarURL    string
	PasswordHash []byte // bcrypt hash
	CreatedAt    int64  // Unix timestamp of account creation
}

// Principal projects the account onto its public identity record.
func (u *User) Principal() Principal {
	return Principal{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
	}
}

// Registration holds the fields needed to create a new account.
type Registration struct {
	FullName string
	Email    string
	Password string
}
