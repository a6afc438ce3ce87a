package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/domain"
	context_ "github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/context"
	"github.com/Yael-Shi/WIP-Whiskey-Collection/internal/infra/logging"
)

const TraceIDHeader = "X-Request-ID"

// HTTPGatewayConfig holds configuration for the HTTP gateway client.
type HTTPGatewayConfig struct {
	// BaseURL is the gateway root, e.g. http://localhost:8000
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`

	// ClientID is sent with the password grant when set
	ClientID string `env:"CLIENT_ID" envDefault:""`

	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// HTTPGateway implements Gateway against the gateway's HTTP API.
type HTTPGateway struct {
	httpClient *http.Client
	oauth      *oauth2.Config
	log        logging.Logger
	baseURL    string
}

var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway creates a new HTTPGateway. If httpClient is nil a client with
// cfg.Timeout is used. The client's transport is wrapped to propagate trace ids.
func NewHTTPGateway(cfg HTTPGatewayConfig, httpClient *http.Client) *HTTPGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout} //nolint:exhaustruct
	}

	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	client := *httpClient
	client.Transport = &tracingTransport{next: base}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	return &HTTPGateway{
		httpClient: &client,
		oauth: &oauth2.Config{ //nolint:exhaustruct
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{ //nolint:exhaustruct
				TokenURL:  baseURL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		log:     logging.GetLogger("svc.gateway.http_gateway"),
		baseURL: baseURL,
	}
}

// Exchange implements Gateway.Exchange with an OAuth2 password grant on /token.
func (g *HTTPGateway) Exchange(ctx context.Context, email, password string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)

	token, err := g.oauth.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			statusErr := &StatusError{
				StatusCode: retrieveErr.Response.StatusCode,
				Detail:     decodeDetail(retrieveErr.Body),
			}

			switch statusErr.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized:
				return "", errors.Join(domain.ErrInvalidCredentials, statusErr)
			default:
				return "", fmt.Errorf("exchange: %w", statusErr)
			}
		}

		return "", fmt.Errorf("exchange: %w", err)
	}

	return token.AccessToken, nil
}

// Me implements Gateway.Me via GET /users/me.
func (g *HTTPGateway) Me(ctx context.Context, token string) (domain.Principal, error) {
	var user userResponse

	err := g.do(ctx, http.MethodGet, "/users/me", token, nil, &user)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			return domain.Principal{}, errors.Join(domain.ErrInvalidAuthToken, err)
		}

		return domain.Principal{}, fmt.Errorf("me: %w", err)
	}

	principal := user.principal()
	if err := principal.Validate(); err != nil {
		return domain.Principal{}, fmt.Errorf("me: %w", err)
	}

	return principal, nil
}

// Register implements Gateway.Register via POST /register.
func (g *HTTPGateway) Register(ctx context.Context, reg domain.Registration) error {
	body := registerRequest{FullName: reg.FullName, Email: reg.Email, Password: reg.Password}

	err := g.do(ctx, http.MethodPost, "/register", "", body, nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			// schema violations are 422; a plain 400 means the email is taken
			switch {
			case statusErr.StatusCode == http.StatusConflict, statusErr.StatusCode == http.StatusBadRequest:
				return errors.Join(domain.ErrUserAlreadyExists, err)
			case statusErr.StatusCode >= 400 && statusErr.StatusCode < 500:
				return errors.Join(domain.ErrValidation, err)
			}
		}

		return fmt.Errorf("register: %w", err)
	}

	return nil
}

// Logout implements Gateway.Logout via POST /logout. A missing endpoint counts as success.
func (g *HTTPGateway) Logout(ctx context.Context, token string) error {
	err := g.do(ctx, http.MethodPost, "/logout", token, nil, nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil
		}

		return fmt.Errorf("logout: %w", err)
	}

	return nil
}

// UpdateProfile implements Gateway.UpdateProfile via PUT /users/me.
func (g *HTTPGateway) UpdateProfile(
	ctx context.Context,
	token string,
	patch domain.ProfilePatch,
) (domain.Principal, error) {
	var user userResponse

	err := g.do(ctx, http.MethodPut, "/users/me", token, patch, &user)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			switch {
			case statusErr.StatusCode == http.StatusUnauthorized:
				return domain.Principal{}, errors.Join(domain.ErrInvalidAuthToken, err)
			case statusErr.StatusCode == http.StatusConflict,
				statusErr.StatusCode == http.StatusBadRequest && isDuplicateDetail(statusErr.Detail):
				return domain.Principal{}, errors.Join(domain.ErrUserAlreadyExists, err)
			case statusErr.StatusCode >= 400 && statusErr.StatusCode < 500:
				return domain.Principal{}, errors.Join(domain.ErrValidation, err)
			}
		}

		return domain.Principal{}, fmt.Errorf("update profile: %w", err)
	}

	return user.principal(), nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path, token string, in, out any) (err error) {
	log := g.log.With(logging.Group("request", "method", method, "path", path))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "gateway request failed", "error", err)
		} else {
			log.DebugContext(ctx, "gateway request succeeded")
		}
	}()

	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: domain.TokenTypeBearer}).SetAuthHeader(req) //nolint:exhaustruct
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", strings.ToLower(method), path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Detail: decodeDetail(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
	}

	return nil
}

// decodeDetail extracts the message of a {"detail": ...} body. Validation errors carry
// a list of objects with a "msg" field instead of a string.
func decodeDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}

	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		return detail
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			msgs = append(msgs, item.Msg)
		}

		return strings.Join(msgs, "; ")
	}

	return string(body.Detail)
}

func isDuplicateDetail(detail string) bool {
	detail = strings.ToLower(detail)

	return strings.Contains(detail, "already")
}

type tracingTransport struct {
	next http.RoundTripper
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if traceID, ok := context_.TraceIDFromContext(req.Context()); ok && req.Header.Get(TraceIDHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(TraceIDHeader, traceID)
	}

	return t.next.RoundTrip(req) //nolint:wrapcheck
}
