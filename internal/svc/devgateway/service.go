// Package devgateway is a development stand-in for the Backend Gateway. It speaks the
// gateway's wire format on top of a local account database.
package devgateway

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/user"
)

// Config contains configuration parameters for the development gateway.
type Config struct {
	// SigningKeyFile is the path to the RSA private key used to sign access tokens
	SigningKeyFile string `env:"SIGNING_KEY_FILE" envDefault:"var/storage/devgateway.key"`

	// TokenDuration is the validity of issued access tokens
	TokenDuration time.Duration `env:"TOKEN_DURATION" envDefault:"1h"`

	Issuer string `env:"ISSUER" envDefault:"whiskey-devgateway"`

	// AdminEmails are granted the admin role on registration
	AdminEmails []string `env:"ADMIN_EMAILS" envDefault:"" envSeparator:","`

	MinPasswordLength int `env:"MIN_PASSWORD_LENGTH" envDefault:"6"`
	BcryptCost        int `env:"BCRYPT_COST"         envDefault:"10"`
}

// ValidationError is a rejected input. It matches domain.ErrValidation.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrValidation
}

// Service manages accounts and access tokens.
type Service struct {
	Config     Config
	UserRepo   user.Repository
	Log        logging.Logger
	SigningKey *rsa.PrivateKey

	now     func() time.Time
	revoked *revocationList
}

// NewService loads (or creates) the signing key and opens the account repository.
func NewService(repoFactory user.RepositoryFactory, cfg Config) (*Service, error) {
	signingKey, err := LoadOrCreateSigningKey(cfg.SigningKeyFile, DefaultKeySize)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	userRepo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	return NewServiceWithKey(userRepo, signingKey, cfg), nil
}

// NewServiceWithKey creates a Service from already constructed dependencies.
func NewServiceWithKey(userRepo user.Repository, signingKey *rsa.PrivateKey, cfg Config) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return &Service{
		Config:     cfg,
		UserRepo:   userRepo,
		Log:        logging.GetLogger("svc.devgateway.service"),
		SigningKey: signingKey,
		now:        time.Now,
		revoked:    newRevocationList(),
	}
}

// Register creates an account. The password is stored as a bcrypt hash.
func (s *Service) Register(ctx context.Context, reg domain.Registration) (_ *domain.User, err error) {
	log := s.Log.With(logging.Group("user", "email", reg.Email))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}()

	email := strings.TrimSpace(reg.Email)
	fullName := strings.TrimSpace(reg.FullName)

	if err := s.validate(fullName, email, reg.Password); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.Config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{ //nolint:exhaustruct
		Email:        email,
		FullName:     fullName,
		Role:         s.roleFor(email),
		PasswordHash: passwordHash,
	}

	if err := s.UserRepo.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

func (s *Service) validate(fullName, email, password string) error {
	if fullName == "" {
		return &ValidationError{Detail: "full name is required"}
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return &ValidationError{Detail: "invalid email address"}
	}

	if len(password) < s.Config.MinPasswordLength {
		return &ValidationError{Detail: fmt.Sprintf("password must be at least %d characters", s.Config.MinPasswordLength)}
	}

	return nil
}

func (s *Service) roleFor(email string) domain.Role {
	if slices.ContainsFunc(s.Config.AdminEmails, func(admin string) bool {
		admin = strings.TrimSpace(admin)

		return admin != "" && strings.EqualFold(admin, email)
	}) {
		return domain.RoleAdmin
	}

	return domain.RoleUser
}

// Login checks the credentials and issues a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (_ string, err error) {
	log := s.Log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	u, ok, err := s.UserRepo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	} else if !ok {
		return "", fmt.Errorf("unknown email: %w", domain.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", errors.Join(domain.ErrInvalidCredentials, err)
	}

	return s.issueToken(u)
}

// Authenticate resolves a token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	u, ok, err := s.UserRepo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	} else if !ok {
		return nil, fmt.Errorf("token subject %s: %w", claims.Subject, errors.Join(domain.ErrInvalidAuthToken, domain.ErrUserNotFound))
	}

	return u, nil
}

// UpdateProfile applies patch to the token's account.
func (s *Service) UpdateProfile(ctx context.Context, token string, patch domain.ProfilePatch) (_ *domain.User, err error) {
	u, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	log := s.Log.With(logging.Group("user", "id", u.ID))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "update profile failed", "error", err)
		} else {
			log.DebugContext(ctx, "profile updated")
		}
	}()

	updated := patch.Apply(u.Principal())

	if patch.FullName != nil && strings.TrimSpace(updated.FullName) == "" {
		return nil, &ValidationError{Detail: "full name is required"}
	}

	if patch.Email != nil {
		if _, err := mail.ParseAddress(updated.Email); err != nil {
			return nil, &ValidationError{Detail: "invalid email address"}
		}
	}

	u.FullName = updated.FullName
	u.Email = updated.Email
	u.Bio = updated.Bio
	u.AvatarURL = updated.AvatarURL

	if err := s.UserRepo.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return u, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}

	s.revoked.revoke(claims.ID, claims.ExpiresAt.Time, s.now())

	s.Log.DebugContext(ctx, "token revoked", "token.id", claims.ID)

	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if err := s.UserRepo.Close(); err != nil {
		return fmt.Errorf("close user repo: %w", err)
	}

	return nil
}
