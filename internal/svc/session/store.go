// Package session holds the single source of truth for who is signed in.
//
// A Store owns the in-memory session and is the only writer of the durable token
// and principal keys. Identity operations are single-flight: a second operation
// started while one is in progress fails with ErrOperationInProgress.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/metrics"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/repo/storage"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/svc/gateway"
)

var (
	// ErrOperationInProgress is returned when an identity operation is already running.
	ErrOperationInProgress = errors.New("identity operation in progress")
	// ErrStorageUnavailable is returned when the session could not be written to durable storage.
	ErrStorageUnavailable = errors.New("session storage unavailable")
)

// cleanupTimeout bounds clearing the durable keys, which ignores caller cancellation.
const cleanupTimeout = 5 * time.Second

// Operation names, as used in logs and metrics.
const (
	OpRestore       = "restore"
	OpLogin         = "login"
	OpLogout        = "logout"
	OpRegister      = "register"
	OpUpdateProfile = "update_profile"
)

// Store is the session store. Construct it with NewStore and call Restore once
// before serving any protected view.
type Store struct {
	gateway gateway.Gateway
	storage storage.Storage
	log     logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	remoteRestore bool

	inflight *semaphore.Weighted

	m     sync.RWMutex
	state domain.Session
	token string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides the store's logger.
func WithLogger(log logging.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithMetrics records operation outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithRemoteRestore lets Restore fall back to the gateway's principal lookup when
// no usable serialized principal is stored next to the token.
func WithRemoteRestore(enabled bool) Option {
	return func(s *Store) {
		s.remoteRestore = enabled
	}
}

// WithClock sets the time source used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store in the loading state.
func NewStore(gw gateway.Gateway, st storage.Storage, opts ...Option) *Store {
	s := &Store{
		gateway:  gw,
		storage:  st,
		log:      logging.GetLogger("svc.session.store"),
		now:      time.Now,
		inflight: semaphore.NewWeighted(1),
		state:    domain.Session{Loading: true}, //nolint:exhaustruct
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() domain.Session {
	s.m.RLock()
	defer s.m.RUnlock()

	snapshot := s.state
	if s.state.Principal != nil {
		snapshot.Principal = clonePrincipal(s.state.Principal)
	}

	return snapshot
}

// Token returns the bearer token of the current session, or "" when anonymous.
func (s *Store) Token() string {
	s.m.RLock()
	defer s.m.RUnlock()

	return s.token
}

// ClearError resets the last error, e.g. when a form is shown again.
func (s *Store) ClearError() {
	s.m.Lock()
	defer s.m.Unlock()

	s.state.LastError = ""
}

// Restore seeds the session from durable storage. It never fails: any problem
// leaves the session anonymous with both keys cleared.
func (s *Store) Restore(ctx context.Context) {
	log := s.log.With("operation", OpRestore)

	if !s.inflight.TryAcquire(1) {
		log.WarnContext(ctx, "restore skipped", "error", ErrOperationInProgress)
		s.metrics.ObserveSessionOperation(OpRestore, metrics.OutcomeRejected)

		return
	}
	defer s.inflight.Release(1)

	s.setLoading(false)

	principal, token, err := s.resolveStored(ctx)

	switch {
	case err == nil && principal == nil:
		s.finish(nil, "", "")
		log.DebugContext(ctx, "no stored session")
		s.metrics.ObserveSessionOperation(OpRestore, metrics.OutcomeSuccess)
	case err == nil:
		s.finish(principal, token, "")
		log.InfoContext(ctx, "session restored", "principal.id", principal.ID)
		s.metrics.ObserveSessionOperation(OpRestore, metrics.OutcomeSuccess)
	default:
		s.clearStorage(ctx)
		s.finish(nil, "", "")

		if errors.Is(err, domain.ErrInvalidAuthToken) {
			log.DebugContext(ctx, "stored token rejected", "error", err)
		} else {
			log.WarnContext(ctx, "restore failed", "error", err)
		}

		s.metrics.ObserveSessionOperation(OpRestore, metrics.OutcomeFailure)
	}
}

// resolveStored returns (nil, "", nil) when no token is stored.
func (s *Store) resolveStored(ctx context.Context) (*domain.Principal, string, error) {
	token, ok, err := s.storage.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return nil, "", fmt.Errorf("read token: %w", err)
	}

	if !ok || token == "" {
		return nil, "", nil
	}

	if err := checkExpiry(token, s.now()); err != nil {
		return nil, "", err
	}

	principal, err := s.loadPrincipal(ctx)
	if err == nil {
		return principal, token, nil
	}

	if !s.remoteRestore {
		return nil, "", err
	}

	s.log.DebugContext(ctx, "falling back to remote principal lookup", "error", err)

	remote, err := s.gateway.Me(ctx, token)
	if err == nil {
		err = remote.Validate()
	}

	if err != nil {
		return nil, "", fmt.Errorf("lookup principal: %w", err)
	}

	if err := s.persist(ctx, map[string]string{}, &remote); err != nil {
		return nil, "", err
	}

	return &remote, token, nil
}

func (s *Store) loadPrincipal(ctx context.Context) (*domain.Principal, error) {
	raw, ok, err := s.storage.Get(ctx, storage.KeyCurrentUser)
	if err != nil {
		return nil, fmt.Errorf("read principal: %w", err)
	}

	if !ok {
		return nil, errStoredPrincipalMissing
	}

	var principal domain.Principal
	if err := json.Unmarshal([]byte(raw), &principal); err != nil {
		return nil, fmt.Errorf("unmarshal principal: %w", err)
	}

	if err := principal.Validate(); err != nil {
		return nil, fmt.Errorf("stored principal: %w", err)
	}

	return &principal, nil
}

var errStoredPrincipalMissing = errors.New("stored principal missing")

// Login exchanges credentials for a token, resolves the principal and persists both.
func (s *Store) Login(ctx context.Context, email, password string) (principal domain.Principal, err error) {
	if !s.inflight.TryAcquire(1) {
		s.metrics.ObserveSessionOperation(OpLogin, metrics.OutcomeRejected)

		return domain.Principal{}, ErrOperationInProgress
	}
	defer s.inflight.Release(1)

	defer s.observe(ctx, OpLogin, &err)

	s.setLoading(true)

	return s.establish(ctx, email, password)
}

// Register creates an account and then signs in with the same credentials.
func (s *Store) Register(ctx context.Context, fullName, email, password string) (principal domain.Principal, err error) {
	if !s.inflight.TryAcquire(1) {
		s.metrics.ObserveSessionOperation(OpRegister, metrics.OutcomeRejected)

		return domain.Principal{}, ErrOperationInProgress
	}
	defer s.inflight.Release(1)

	defer s.observe(ctx, OpRegister, &err)

	s.setLoading(true)

	reg := domain.Registration{FullName: fullName, Email: email, Password: password}
	if err := s.gateway.Register(ctx, reg); err != nil {
		return domain.Principal{}, s.fail(ctx, fmt.Errorf("register: %w", err))
	}

	return s.establish(ctx, email, password)
}

// establish runs the login sequence. Any failure leaves the session anonymous.
func (s *Store) establish(ctx context.Context, email, password string) (domain.Principal, error) {
	token, err := s.gateway.Exchange(ctx, email, password)
	if err != nil {
		return domain.Principal{}, s.fail(ctx, fmt.Errorf("exchange credentials: %w", err))
	}

	principal, err := s.gateway.Me(ctx, token)
	if err == nil {
		err = principal.Validate()
	}

	if err != nil {
		return domain.Principal{}, s.fail(ctx, fmt.Errorf("lookup principal: %w", err))
	}

	if err := s.persist(ctx, map[string]string{storage.KeyAuthToken: token}, &principal); err != nil {
		return domain.Principal{}, s.fail(ctx, err)
	}

	s.finish(&principal, token, "")

	return principal, nil
}

// fail resets the session after a failed login or registration and returns err.
func (s *Store) fail(ctx context.Context, err error) error {
	s.clearStorage(ctx)
	s.finish(nil, "", Message(err))

	return err
}

// Logout revokes the token where possible and always ends anonymous. An operation
// already in flight is waited for rather than rejected.
func (s *Store) Logout(ctx context.Context) {
	log := s.log.With("operation", OpLogout)

	_ = s.inflight.Acquire(context.WithoutCancel(ctx), 1)
	defer s.inflight.Release(1)

	token := s.Token()

	s.setLoading(false)

	if token != "" {
		if err := s.gateway.Logout(ctx, token); err != nil {
			log.WarnContext(ctx, "remote logout failed", "error", err)
		}
	}

	s.clearStorage(ctx)
	s.finish(nil, "", "")

	log.InfoContext(ctx, "logged out")
	s.metrics.ObserveSessionOperation(OpLogout, metrics.OutcomeSuccess)
}

// UpdateProfile applies patch through the gateway and merges the result into the
// current principal. It returns (nil, nil) when nobody is signed in. A rejected
// update leaves the session untouched.
func (s *Store) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (_ *domain.Principal, err error) {
	if !s.inflight.TryAcquire(1) {
		s.metrics.ObserveSessionOperation(OpUpdateProfile, metrics.OutcomeRejected)

		return nil, ErrOperationInProgress
	}
	defer s.inflight.Release(1)

	snapshot := s.Snapshot()
	if snapshot.Principal == nil {
		return nil, nil //nolint:nilnil
	}

	defer s.observe(ctx, OpUpdateProfile, &err)

	remote, err := s.gateway.UpdateProfile(ctx, s.Token(), patch)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	merged := mergePrincipal(*snapshot.Principal, remote, patch)

	if err := s.persist(ctx, map[string]string{}, &merged); err != nil {
		return nil, err
	}

	s.m.Lock()
	s.state.Principal = &merged
	s.m.Unlock()

	return clonePrincipal(&merged), nil
}

// mergePrincipal overlays the gateway's echo onto the locally patched principal.
// Fields the gateway left empty keep their local value.
func mergePrincipal(current, remote domain.Principal, patch domain.ProfilePatch) domain.Principal {
	merged := patch.Apply(current)

	if remote.ID != "" {
		merged.ID = remote.ID
	}
	if remote.Email != "" {
		merged.Email = remote.Email
	}
	if remote.FullName != "" {
		merged.FullName = remote.FullName
	}
	if remote.Role != "" {
		merged.Role = remote.Role
	}
	if remote.Capabilities != nil {
		merged.Capabilities = remote.Capabilities
	}
	if remote.Bio != "" {
		merged.Bio = remote.Bio
	}
	if remote.AvatarURL != "" {
		merged.AvatarURL = remote.AvatarURL
	}

	return merged
}

// persist writes values plus the serialized principal in one step.
func (s *Store) persist(ctx context.Context, values map[string]string, principal *domain.Principal) error {
	data, err := json.Marshal(principal)
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}

	values[storage.KeyCurrentUser] = string(data)

	if err := s.storage.Set(ctx, values); err != nil {
		return fmt.Errorf("persist session: %w", errors.Join(ErrStorageUnavailable, err))
	}

	return nil
}

// clearStorage removes both keys even when ctx is already cancelled.
func (s *Store) clearStorage(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.storage.Delete(ctx, storage.KeyAuthToken, storage.KeyCurrentUser); err != nil {
		s.log.ErrorContext(ctx, "clear storage failed", "error", err)
	}
}

// setLoading marks an operation as started, optionally clearing the last error.
func (s *Store) setLoading(clearError bool) {
	s.m.Lock()
	defer s.m.Unlock()

	s.state.Loading = true
	if clearError {
		s.state.LastError = ""
	}
}

// finish ends an operation with the given principal and error message.
func (s *Store) finish(principal *domain.Principal, token, lastError string) {
	s.m.Lock()
	defer s.m.Unlock()

	s.state.Principal = clonePrincipal(principal)
	s.state.Loading = false
	s.state.LastError = lastError
	s.token = token
}

func (s *Store) observe(ctx context.Context, op string, err *error) {
	log := s.log.With("operation", op)

	if *err != nil {
		log.InfoContext(ctx, "operation failed", "error", *err)
		s.metrics.ObserveSessionOperation(op, metrics.OutcomeFailure)

		return
	}

	log.DebugContext(ctx, "operation succeeded")
	s.metrics.ObserveSessionOperation(op, metrics.OutcomeSuccess)
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	if p == nil {
		return nil
	}

	clone := *p
	if p.Capabilities != nil {
		clone.Capabilities = append([]domain.Role(nil), p.Capabilities...)
	}

	return &clone
}
