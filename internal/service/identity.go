package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/civisim/civisim-api/internal/errors"

	"github.com/civisim/civisim-api/internal/domain/identity"
	"github.com/civisim/civisim-api/internal/ports"
)

// DefaultSessionTTL bounds the server-side session independently of the
// provider token lifetime; the credential pair may be refreshed within it.
const DefaultSessionTTL = 24 * time.Hour

// IdentityServiceOptions groups dependencies for IdentityService.
type IdentityServiceOptions struct {
	Auth     ports.Authenticator
	SSO      ports.SSOProvider // optional, operator login mode only
	Sessions ports.SessionStore
	Profiles ports.ProfileStore
	Roles    ports.RoleMapper
	Logger   *slog.Logger

	// SessionTTL overrides DefaultSessionTTL when positive.
	SessionTTL time.Duration
}

// IdentityService orchestrates the session/identity lifecycle: login and
// registration against the identity backend, server-side session persistence,
// and profile resolution with its fail-closed guarantee.
type IdentityService struct {
	auth       ports.Authenticator
	sso        ports.SSOProvider
	sessions   ports.SessionStore
	profiles   ports.ProfileStore
	roles      ports.RoleMapper
	logger     *slog.Logger
	sessionTTL time.Duration

	// resolveGroup deduplicates concurrent profile resolutions per session.
	resolveGroup singleflight.Group

	now func() time.Time
}

// NewIdentityService constructs a new IdentityService.
func NewIdentityService(opts IdentityServiceOptions) *IdentityService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	return &IdentityService{
		auth:       opts.Auth,
		sso:        opts.SSO,
		sessions:   opts.Sessions,
		profiles:   opts.Profiles,
		roles:      opts.Roles,
		logger:     opts.Logger,
		sessionTTL: opts.SessionTTL,
		now:        time.Now,
	}
}

// LoginResult carries the established session and the settled state.
type LoginResult struct {
	Session identity.Session
	State   identity.State
}

// Login signs in with an identifier (email, username, or phone) and password.
// Non-email identifiers are resolved to the account email before the password
// grant so the backend only ever sees email credentials. A session is only
// returned once profile resolution has settled; a resolution failure tears the
// session down again.
func (s *IdentityService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperrors.ValidationField("identifier", "identifier is required")
	}
	if password == "" {
		return nil, apperrors.ValidationField("password", "password is required")
	}

	email := identifier
	if !strings.Contains(identifier, "@") {
		resolved, err := s.profiles.ResolveIdentifier(ctx, identifier)
		if err != nil {
			if errors.Is(err, ports.ErrAccountNotFound) {
				return nil, &AuthenticationError{Reason: "account not found", Err: err}
			}
			return nil, fmt.Errorf("resolve identifier: %w", err)
		}
		email = resolved
	}

	result, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		if apperrors.IsUnauthenticated(err) {
			return nil, &AuthenticationError{Reason: "invalid credentials", Err: err}
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}

	return s.establishSession(ctx, result.Identity, result.Credential)
}

// RegisterInput groups parameters for creating a new citizen account.
type RegisterInput struct {
	Email       string
	Password    string
	Username    string
	DisplayName string
	RedirectURL string
}

// Register creates a pending identity with the backend. No session is
// established; the user confirms by email and then logs in.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) error {
	if strings.TrimSpace(in.Email) == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if in.Password == "" {
		return apperrors.ValidationField("password", "password is required")
	}

	data := map[string]any{}
	if in.Username != "" {
		data["username"] = in.Username
	}
	if in.DisplayName != "" {
		data["display_name"] = in.DisplayName
	}

	if err := s.auth.SignUp(ctx, ports.SignUpInput{
		Email:       in.Email,
		Password:    in.Password,
		Data:        data,
		RedirectURL: in.RedirectURL,
	}); err != nil {
		return fmt.Errorf("sign up: %w", err)
	}
	return nil
}

// Logout tears down a session. It is idempotent: an unknown session, an
// already-revoked refresh token, or a provider outage all leave the caller
// logged out locally and return nil. The local session is always deleted.
func (s *IdentityService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("get session: %w", err)
	}

	if revokeErr := s.auth.SignOut(ctx, sess.Credential.RefreshToken); revokeErr != nil {
		if errors.Is(revokeErr, ports.ErrRefreshTokenNotFound) {
			// The token was already revoked or expired upstream. The user is
			// logged out either way.
			s.logger.DebugContext(ctx, "refresh token already gone during logout",
				"session_id", sessionID)
		} else {
			s.logger.WarnContext(ctx, "remote sign-out failed; clearing local session anyway",
				"session_id", sessionID, "err", revokeErr)
		}
	}

	if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
		return fmt.Errorf("delete session: %w", delErr)
	}
	return nil
}

// Resolve settles the state for a session id. An unknown or expired session
// yields the anonymous state. For a live session the profile is fetched,
// created through the idempotent ensure call if missing, and fetched once
// more; any failure past that point forces a logout and returns a
// ProfileResolutionError. Concurrent resolutions for the same session share
// one flight.
func (s *IdentityService) Resolve(ctx context.Context, sessionID string) (identity.State, error) {
	if sessionID == "" {
		return identity.AnonymousState(), nil
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return identity.AnonymousState(), nil
		}
		return identity.AnonymousState(), fmt.Errorf("get session: %w", err)
	}
	if sess.IsExpired(s.now()) {
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete expired session",
				"session_id", sessionID, "err", delErr)
		}
		return identity.AnonymousState(), nil
	}

	// The flight outcome is shared by every concurrent caller of this
	// session, so it must not inherit any single caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.resolveGroup.Do(sess.ID, func() (any, error) {
		profile, rerr := s.resolveProfile(flightCtx, sess)
		if rerr != nil {
			return nil, rerr
		}
		return profile, nil
	})
	if err != nil {
		// An interrupted resolution says nothing about the profile; only a
		// settled failure tears the session down.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return identity.AnonymousState(), fmt.Errorf("resolve interrupted: %w", err)
		}
		s.forceLogout(flightCtx, sess)
		var resErr *ProfileResolutionError
		if !errors.As(err, &resErr) {
			err = &ProfileResolutionError{Stage: "fetch", Err: err}
		}
		return identity.AnonymousState(), err
	}

	profile := v.(identity.Profile)
	return identity.ReadyState(&sess, &profile), nil
}

// RefreshProfile re-runs profile resolution for a live session and returns
// the updated state. Used after onboarding or a role grant.
func (s *IdentityService) RefreshProfile(ctx context.Context, sessionID string) (identity.State, error) {
	// Resolution is not cached beyond the in-flight window, so a refresh is a
	// plain resolve issued after the mutation.
	return s.Resolve(ctx, sessionID)
}

// RequestPasswordReset asks the backend to send a recovery email. The outcome
// does not reveal whether the address has an account.
func (s *IdentityService) RequestPasswordReset(ctx context.Context, email, redirectURL string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if err := s.auth.ResetPassword(ctx, email, redirectURL); err != nil {
		return &PasswordResetError{Err: err}
	}
	return nil
}

// SetNewPassword changes the password for the authenticated session.
func (s *IdentityService) SetNewPassword(ctx context.Context, sessionID, newPassword string) error {
	if newPassword == "" {
		return apperrors.ValidationField("password", "new password is required")
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return apperrors.Unauthenticated("no active session")
		}
		return fmt.Errorf("get session: %w", err)
	}
	if err := s.auth.UpdatePassword(ctx, sess.Credential.AccessToken, newPassword); err != nil {
		return &PasswordUpdateError{Err: err}
	}
	return nil
}

// BeginSSOResult contains the redirect parameters for an operator login.
type BeginSSOResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginSSO initiates the redirect-based operator login flow.
func (s *IdentityService) BeginSSO(ctx context.Context, redirectURL string) (*BeginSSOResult, error) {
	if s.sso == nil {
		return nil, apperrors.Validation("operator login is not configured")
	}
	authURL, state, nonce, err := s.sso.Begin(ctx, ports.SSOBeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin sso flow: %w", err)
	}
	return &BeginSSOResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteSSO finishes the operator login flow and establishes a session.
func (s *IdentityService) CompleteSSO(ctx context.Context, code, state, nonce string) (*LoginResult, error) {
	if s.sso == nil {
		return nil, apperrors.Validation("operator login is not configured")
	}
	ident, err := s.sso.Exchange(ctx, ports.SSOExchangeInput{Code: code, State: state, Nonce: nonce})
	if err != nil {
		return nil, fmt.Errorf("exchange sso code: %w", err)
	}
	// Operator SSO does not hand us a refresh token to manage; the session is
	// bounded by the id token expiry.
	return s.establishSession(ctx, ident, identity.Credential{ExpiresAt: ident.ExpiresAt})
}

func (s *IdentityService) establishSession(
	ctx context.Context,
	ident identity.Identity,
	cred identity.Credential,
) (*LoginResult, error) {
	sess := identity.Session{
		ID:         uuid.NewString(),
		UserID:     ident.UserID,
		Identity:   ident,
		Credential: cred,
		ExpiresAt:  s.now().Add(s.sessionTTL),
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	profile, err := s.resolveProfile(ctx, sess)
	if err != nil {
		s.forceLogout(ctx, sess)
		return nil, err
	}

	return &LoginResult{
		Session: sess,
		State:   identity.ReadyState(&sess, &profile),
	}, nil
}

// resolveProfile settles the profile for a session: fetch, ensure on miss,
// refetch exactly once, then merge claim-mapped roles in.
func (s *IdentityService) resolveProfile(ctx context.Context, sess identity.Session) (identity.Profile, error) {
	profile, err := s.profiles.Fetch(ctx, sess.UserID)
	if errors.Is(err, ports.ErrProfileNotFound) {
		if ensureErr := s.profiles.EnsureExists(ctx, sess.Identity); ensureErr != nil {
			return identity.Profile{}, &ProfileResolutionError{Stage: "ensure", Err: ensureErr}
		}
		profile, err = s.profiles.Fetch(ctx, sess.UserID)
		if err != nil {
			return identity.Profile{}, &ProfileResolutionError{Stage: "refetch", Err: err}
		}
	} else if err != nil {
		return identity.Profile{}, &ProfileResolutionError{Stage: "fetch", Err: err}
	}

	mapped, err := s.roles.Map(sess.Identity.Metadata)
	if err != nil {
		return identity.Profile{}, &ProfileResolutionError{Stage: "roles", Err: err}
	}
	profile.Roles = profile.Roles.Union(mapped)

	return profile, nil
}

// forceLogout tears a session down after a resolution failure. Never leave a
// session observable without a profile.
func (s *IdentityService) forceLogout(ctx context.Context, sess identity.Session) {
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		s.logger.ErrorContext(ctx, "forced logout failed to delete session",
			"session_id", sess.ID, "err", err)
	}
	if sess.Credential.RefreshToken == "" {
		return
	}
	if err := s.auth.SignOut(ctx, sess.Credential.RefreshToken); err != nil &&
		!errors.Is(err, ports.ErrRefreshTokenNotFound) {
		s.logger.WarnContext(ctx, "forced logout failed to revoke refresh token",
			"session_id", sess.ID, "err", err)
	}
}
