package gotrue

// Package gotrue is the HTTP client for the hosted GoTrue-style identity
// backend (password grant, sign-up, logout, recovery, password update).
// The backend owns all token semantics; this adapter only moves opaque
// tokens and surfaces the backend's error messages verbatim.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civisim/civisim-api/internal/domain/identity"
	apperrors "github.com/civisim/civisim-api/internal/errors"
	"github.com/civisim/civisim-api/internal/ports"
)

var _ ports.Authenticator = (*Client)(nil)

// Client implements ports.Authenticator against the identity backend's REST API.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// Config holds configuration for the identity backend client.
type Config struct {
	// BaseURL is the backend's auth endpoint root, e.g. "https://id.example.com/auth/v1".
	BaseURL string
	// AnonKey is the publishable API key sent with every request.
	AnonKey string
	// HTTPClient is optional; a 30s-timeout client is used when nil.
	HTTPClient *http.Client
}

// NewClient creates a backend client. Both BaseURL and AnonKey are required;
// their absence is a configuration error, not a runtime condition.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("identity backend base URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("identity backend anon key is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: httpClient,
	}, nil
}

// tokenResponse is the backend's password-grant response.
type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	AppMetadata map[string]any `json:"app_metadata"`
}

// errorResponse covers the shapes the backend uses for failures.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (c *Client) SignIn(ctx context.Context, email, password string) (ports.SignInResult, error) {
	if email == "" || password == "" {
		return ports.SignInResult{}, apperrors.Unauthenticated("email and password are required")
	}

	body := map[string]string{"email": email, "password": password}
	var out tokenResponse
	err := c.do(ctx, request{
		Method: http.MethodPost,
		Path:   "/token?grant_type=password",
		Body:   body,
		Out:    &out,
	})
	if err != nil {
		// Bad credentials come back as a 400 invalid_grant; keep that
		// distinguishable from backend outages.
		var provErr *providerError
		if errors.As(err, &provErr) && provErr.status == http.StatusBadRequest {
			return ports.SignInResult{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthenticated, "invalid credentials")
		}
		return ports.SignInResult{}, err
	}

	expiresAt := time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return ports.SignInResult{
		Identity: identity.Identity{
			UserID:    out.User.ID,
			Email:     out.User.Email,
			Phone:     out.User.Phone,
			Metadata:  out.User.AppMetadata,
			ExpiresAt: expiresAt,
		},
		Credential: identity.Credential{
			AccessToken:  out.AccessToken,
			RefreshToken: out.RefreshToken,
			ExpiresAt:    expiresAt,
		},
	}, nil
}

func (c *Client) SignUp(ctx context.Context, in ports.SignUpInput) error {
	if in.Email == "" || in.Password == "" {
		return apperrors.Validation("email and password are required")
	}

	path := "/signup"
	if in.RedirectURL != "" {
		path += "?redirect_to=" + url.QueryEscape(in.RedirectURL)
	}
	body := map[string]any{"email": in.Email, "password": in.Password}
	if len(in.Data) > 0 {
		body["data"] = in.Data
	}
	return c.do(ctx, request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) SignOut(ctx context.Context, refreshToken string) error {
	err := c.do(ctx, request{
		Method: http.MethodPost,
		Path:   "/logout",
		Body:   map[string]string{"refresh_token": refreshToken},
	})
	if err != nil && isRefreshTokenNotFound(err) {
		return fmt.Errorf("%w: %w", ports.ErrRefreshTokenNotFound, err)
	}
	return err
}

func (c *Client) ResetPassword(ctx context.Context, email, redirectURL string) error {
	if email == "" {
		return apperrors.Validation("email is required")
	}
	path := "/recover"
	if redirectURL != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectURL)
	}
	return c.do(ctx, request{Method: http.MethodPost, Path: path, Body: map[string]string{"email": email}})
}

func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	if accessToken == "" {
		return apperrors.Unauthenticated("access token is required")
	}
	if newPassword == "" {
		return apperrors.Validation("new password is required")
	}
	return c.do(ctx, request{
		Method:      http.MethodPut,
		Path:        "/user",
		Body:        map[string]string{"password": newPassword},
		AccessToken: accessToken,
	})
}

// request groups parameters for do.
type request struct {
	Method      string
	Path        string
	Body        any
	Out         any
	AccessToken string
}

func (c *Client) do(ctx context.Context, r request) error {
	var payload io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	if r.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeProvider, "identity backend unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.readError(resp)
	}

	if r.Out != nil {
		if decodeErr := json.NewDecoder(resp.Body).Decode(r.Out); decodeErr != nil {
			return fmt.Errorf("decode response: %w", decodeErr)
		}
	}
	return nil
}

// providerError preserves the backend's status and message so callers can
// recognize specific conditions without parsing free text twice.
type providerError struct {
	status  int
	code    string
	message string
}

func (e *providerError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("identity backend returned status %d", e.status)
	}
	return e.message
}

func (c *Client) readError(resp *http.Response) error {
	var body errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	perr := &providerError{status: resp.StatusCode, code: body.ErrorCode, message: body.text()}
	return apperrors.Wrap(perr, apperrors.ErrCodeProvider, "identity backend error")
}

// isRefreshTokenNotFound recognizes the backend's already-revoked-token
// response in either its structured code or message form.
func isRefreshTokenNotFound(err error) bool {
	var perr *providerError
	if !errors.As(err, &perr) {
		return false
	}
	if perr.code == "refresh_token_not_found" {
		return true
	}
	return strings.Contains(strings.ToLower(perr.message), "refresh token not found")
}
