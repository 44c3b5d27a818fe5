package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/civisim/civisim-api/internal/errors"

	"github.com/civisim/civisim-api/internal/service"
)

// IdentityServiceInterface defines the identity operations the handlers need.
type IdentityServiceInterface interface {
	Login(ctx context.Context, identifier, password string) (*service.LoginResult, error)
	Register(ctx context.Context, in service.RegisterInput) error
	Logout(ctx context.Context, sessionID string) error
	RequestPasswordReset(ctx context.Context, email, redirectURL string) error
	SetNewPassword(ctx context.Context, sessionID, newPassword string) error
	ProfileRefresher
	BeginSSO(ctx context.Context, redirectURL string) (*service.BeginSSOResult, error)
	CompleteSSO(ctx context.Context, code, state, nonce string) (*service.LoginResult, error)
}

// SessionInvalidator is the slice of the session manager the handlers notify
// after auth events.
type SessionInvalidator interface {
	Invalidate(sessionID string)
}

// AuthHandlers provides HTTP handlers for the session lifecycle.
type AuthHandlers struct {
	Svc          IdentityServiceInterface
	Events       SessionInvalidator // optional
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) invalidate(sessionID string) {
	if h.Events != nil && sessionID != "" {
		h.Events.Invalidate(sessionID)
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Login handles password sign-in.
// POST /api/auth/login {"identifier": "...", "password": "..."}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	setSessionCookie(w, r, result.Session, h.CookieDomain)
	h.invalidate(result.Session.ID)
	WriteJSON(w, http.StatusOK, result.State)
}

func (h *AuthHandlers) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *service.AuthenticationError
	if errors.As(err, &authErr) {
		// The reason distinguishes "account not found" from "invalid
		// credentials"; both stay 401.
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_failed",
			Err:     errors.New(authErr.Reason),
		})
		return
	}
	var resErr *service.ProfileResolutionError
	if errors.As(err, &resErr) {
		h.logger().ErrorContext(r.Context(), "login aborted by profile resolution",
			"stage", resErr.Stage, "error", resErr.Err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "profile_resolution_failed",
			Err:     errors.New("could not load your profile; you have been signed out"),
		})
		return
	}
	if apperrors.IsValidation(err) {
		WriteAppError(w, err)
		return
	}
	h.logger().ErrorContext(r.Context(), "login failed", "error", err)
	WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: err})
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// Register handles account creation.
// POST /api/auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	err := h.Svc.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		RedirectURL: confirmRedirectURL(r),
	})
	if err != nil {
		if apperrors.IsValidation(err) || apperrors.IsConflict(err) {
			WriteAppError(w, err)
			return
		}
		h.logger().ErrorContext(r.Context(), "registration failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "registration_failed", Err: err})
		return
	}

	// The identity is pending email confirmation; no session yet.
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "confirmation_pending"})
}

// confirmRedirectURL builds the absolute URL the confirmation email returns to.
func confirmRedirectURL(r *http.Request) string {
	scheme := "http"
	if requestIsSecure(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/login"
}

// Logout tears the session down.
// POST /api/auth/logout. Always succeeds from the client's point of view.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := ""
	if c, err := r.Cookie(SessionCookieName); err == nil {
		sessionID = c.Value
	}

	if err := h.Svc.Logout(r.Context(), sessionID); err != nil {
		// The local session could not be cleared; the cookie still gets
		// dropped so the client stops presenting it.
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
	}

	clearSessionCookie(w, r, h.CookieDomain)
	h.invalidate(sessionID)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Session reports the current resolved state.
// GET /api/session.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	st := StateFromContext(r.Context())
	if !st.Authenticated() {
		clearSessionCookie(w, r, h.CookieDomain)
	}
	WriteJSON(w, http.StatusOK, st)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset triggers a recovery email.
// POST /api/auth/password/reset.
func (h *AuthHandlers) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.RequestPasswordReset(r.Context(), req.Email, confirmRedirectURL(r)); err != nil {
		if apperrors.IsValidation(err) {
			WriteAppError(w, err)
			return
		}
		// Do not leak whether the address exists; log and answer as accepted.
		h.logger().WarnContext(r.Context(), "password reset request failed", "error", err)
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "reset_email_sent"})
}

type passwordUpdateRequest struct {
	NewPassword string `json:"new_password"`
}

// UpdatePassword sets a new password for the current session.
// POST /api/auth/password.
func (h *AuthHandlers) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordUpdateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	sessionID := ""
	if c, err := r.Cookie(SessionCookieName); err == nil {
		sessionID = c.Value
	}

	if err := h.Svc.SetNewPassword(r.Context(), sessionID, req.NewPassword); err != nil {
		var updErr *service.PasswordUpdateError
		if errors.As(err, &updErr) {
			WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "password_update_failed", Err: err})
			return
		}
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}

// SSOLogin initiates the operator SSO flow.
// GET /auth/sso/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) SSOLogin(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Svc.BeginSSO(r.Context(), redirectURI)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "sso begin failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "sso_login_failed", Err: err})
		return
	}

	setOAuthCookies(w, r, oauthCookieParams{
		State:       result.State,
		Nonce:       result.Nonce,
		RedirectURI: redirectURI,
	}, h.CookieDomain)

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// SSOCallback completes the operator SSO flow.
// GET /auth/sso/callback?code=<code>&state=<state>.
func (h *AuthHandlers) SSOCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_params",
			Err:     errors.New("code and state parameters are required"),
		})
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie("oauth_nonce")
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	result, err := h.Svc.CompleteSSO(r.Context(), code, state, nonceCookie.Value)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "sso callback failed", "error", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "sso_completion_failed",
			Err:     err,
		})
		return
	}

	setSessionCookie(w, r, result.Session, h.CookieDomain)
	clearCookie(w, r, "oauth_state", h.CookieDomain)
	clearCookie(w, r, "oauth_nonce", h.CookieDomain)
	h.invalidate(result.Session.ID)

	http.Redirect(w, r, h.postLoginRedirect(w, r), http.StatusFound)
}

// postLoginRedirect returns the stored destination and clears the cookie.
func (h *AuthHandlers) postLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	redirectURI := "/"
	if c, err := r.Cookie("post_login_redirect"); err == nil {
		// Only relative paths are accepted back from the cookie.
		u, parseErr := url.Parse(c.Value)
		if parseErr == nil && !u.IsAbs() && u.Host == "" && strings.HasPrefix(u.Path, "/") {
			redirectURI = c.Value
		}
		clearCookie(w, r, "post_login_redirect", h.CookieDomain)
	}
	return redirectURI
}
