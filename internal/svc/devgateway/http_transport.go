package devgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
	http_ "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/transport/http"
)

var (
	// ErrNoEmail is returned when the email is missing from the request.
	ErrNoEmail = errors.New("no email")
	// ErrNoPassword is returned when the password is missing from the request.
	ErrNoPassword = errors.New("no password")
)

// Error details, matching the wording clients already know.
const (
	detailBadCredentials    = "Incorrect email or password"
	detailInvalidToken      = "Could not validate credentials"
	detailEmailRegistered   = "Email already registered"
	detailMissingCredential = "username and password are required"
	detailInternal          = "Internal server error"
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// HTTPTransport exposes the Service over HTTP:
//   - POST /token: password grant, returns {access_token, token_type}
//   - POST /register: create an account
//   - GET /users/me: the token's account
//   - PUT /users/me: update the token's account
//   - POST /logout: revoke the token
type HTTPTransport struct {
	svc *Service
	log logging.Logger
	mux *http.ServeMux
}

var _ http.Handler = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport for svc.
func NewHTTPTransport(svc *Service) *HTTPTransport {
	ht := &HTTPTransport{
		svc: svc,
		log: logging.GetLogger("svc.devgateway.http_transport"),
		mux: http.NewServeMux(),
	}

	ht.mux.HandleFunc("POST /token", ht.HandleToken)
	ht.mux.HandleFunc("POST /register", ht.HandleRegister)
	ht.mux.HandleFunc("GET /users/me", ht.HandleMe)
	ht.mux.HandleFunc("PUT /users/me", ht.HandleUpdateMe)
	ht.mux.HandleFunc("POST /logout", ht.HandleLogout)
	ht.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return ht
}

func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// userResponse is the public account record.
type userResponse struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	Role        domain.Role `json:"role"`
	IsActive    bool        `json:"is_active"`
	IsSuperuser bool        `json:"is_superuser"`
	Bio         string      `json:"bio"`
	AvatarURL   string      `json:"avatar_url"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		IsActive:    true,
		IsSuperuser: u.Role == domain.RoleAdmin,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
	}
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleToken processes password grants.
// Expects form parameters: username (the email), password.
func (ht *HTTPTransport) HandleToken(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleToken(w, r)
}

func (ht *HTTPTransport) handleToken(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer ht.logResult(r.Context(), log, "token issued", "token request failed", &err)

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form")

		return fmt.Errorf("parse form: %w", err)
	}

	email := r.PostForm.Get("username")
	if email == "" {
		writeError(w, http.StatusUnprocessableEntity, detailMissingCredential)

		return ErrNoEmail
	}

	password := r.PostForm.Get("password")
	if password == "" {
		writeError(w, http.StatusUnprocessableEntity, detailMissingCredential)

		return ErrNoPassword
	}

	token, err := ht.svc.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, detailBadCredentials)
		} else {
			writeError(w, http.StatusInternalServerError, detailInternal)
		}

		return fmt.Errorf("login: %w", err)
	}

	return writeJSON(w, http.StatusOK, domain.AuthTokenResponse{AccessToken: token, TokenType: domain.TokenTypeBearer})
}

// HandleRegister processes account creation. Expects a JSON body.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer ht.logResult(r.Context(), log, "user registered", "user register failed", &err)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")

		return fmt.Errorf("decode body: %w", err)
	}

	u, err := ht.svc.Register(r.Context(), domain.Registration{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		ht.writeServiceError(w, err)

		return fmt.Errorf("register: %w", err)
	}

	return writeJSON(w, http.StatusOK, newUserResponse(u))
}

// HandleMe returns the account of the bearer token.
func (ht *HTTPTransport) HandleMe(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleMe(w, r)
}

func (ht *HTTPTransport) handleMe(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer ht.logResult(r.Context(), log, "user resolved", "user lookup failed", &err)

	u, err := ht.svc.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		ht.writeServiceError(w, err)

		return fmt.Errorf("authenticate: %w", err)
	}

	return writeJSON(w, http.StatusOK, newUserResponse(u))
}

// HandleUpdateMe applies a partial profile update. Expects a JSON body.
func (ht *HTTPTransport) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdateMe(w, r)
}

func (ht *HTTPTransport) handleUpdateMe(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer ht.logResult(r.Context(), log, "profile updated", "profile update failed", &err)

	var patch domain.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")

		return fmt.Errorf("decode body: %w", err)
	}

	u, err := ht.svc.UpdateProfile(r.Context(), bearerToken(r), patch)
	if err != nil {
		ht.writeServiceError(w, err)

		return fmt.Errorf("update profile: %w", err)
	}

	return writeJSON(w, http.StatusOK, newUserResponse(u))
}

// HandleLogout revokes the bearer token.
func (ht *HTTPTransport) HandleLogout(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogout(w, r)
}

func (ht *HTTPTransport) handleLogout(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer ht.logResult(r.Context(), log, "token revoked", "logout failed", &err)

	if err := ht.svc.Logout(r.Context(), bearerToken(r)); err != nil {
		ht.writeServiceError(w, err)

		return fmt.Errorf("logout: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

func (ht *HTTPTransport) logResult(ctx context.Context, log logging.Logger, ok, failed string, err *error) {
	if *err != nil {
		log.InfoContext(ctx, failed, "error", *err)
	} else {
		log.DebugContext(ctx, ok)
	}
}

// writeServiceError maps service errors onto the gateway's status codes.
func (ht *HTTPTransport) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAuthToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, detailInvalidToken)
	case errors.Is(err, domain.ErrUserAlreadyExists):
		writeError(w, http.StatusBadRequest, detailEmailRegistered)
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
	default:
		writeError(w, http.StatusInternalServerError, detailInternal)
	}
}

func validationDetail(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Detail
	}

	return domain.ErrValidation.Error()
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

func writeError(w http.ResponseWriter, status int, detail string) {
	_ = writeJSON(w, status, domain.ErrorResponse{Detail: detail})
}
