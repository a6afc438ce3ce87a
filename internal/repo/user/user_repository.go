package user

import (
	"context"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
)

// Repository defines the interface for account persistence.
type Repository interface {
	// CreateUser adds a new account. ID and CreatedAt are filled in by the repository
	// when empty. Returns ErrUserAlreadyExists if the email is already taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUserByEmail retrieves an account by its login email.
	// Returns the user and true if found, or nil and false if not found.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, bool, error)

	// GetUserByID retrieves an account by its identifier.
	GetUserByID(ctx context.Context, id string) (*domain.User, bool, error)

	// UpdateUser overwrites the mutable profile fields of an existing account.
	// Returns ErrUserNotFound if no account has the given ID and ErrUserAlreadyExists
	// if the new email belongs to another account.
	UpdateUser(ctx context.Context, user *domain.User) error

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func() (Repository, error)
