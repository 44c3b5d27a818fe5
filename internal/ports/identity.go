package ports

// Package ports defines interfaces (hexagonal ports) for identity behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

// SignInResult carries the outcome of a password sign-in.
type SignInResult struct {
	Identity   identity.Identity
	Credential identity.Credential
}

// SignUpInput groups parameters for creating a pending identity.
type SignUpInput struct {
	Email    string
	Password string
	// Data is provider user metadata recorded at sign-up (username, display name).
	Data map[string]any
	// RedirectURL is where the confirmation email sends the user.
	RedirectURL string
}

// Authenticator talks to the hosted identity backend's password flow.
// All token interpretation belongs to the backend; this service only holds
// the opaque credential pair.
type Authenticator interface {
	// SignIn performs the password grant for a resolved email address.
	SignIn(ctx context.Context, email, password string) (SignInResult, error)

	// SignUp creates a pending identity. It does not establish a session; an
	// email-confirmation step owned by the backend may still be required.
	SignUp(ctx context.Context, in SignUpInput) error

	// SignOut revokes the refresh token remotely. Implementations must return
	// identity-provider errors verbatim so callers can recognize the benign
	// "refresh token not found" condition.
	SignOut(ctx context.Context, refreshToken string) error

	// ResetPassword triggers the provider's recovery email.
	ResetPassword(ctx context.Context, email, redirectURL string) error

	// UpdatePassword sets a new password for the bearer of accessToken.
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error
}

// SSOBeginInput carries inputs for initiating an operator SSO flow.
type SSOBeginInput struct {
	RedirectURL string
}

// SSOExchangeInput groups parameters for the code/token exchange.
type SSOExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// SSOProvider initiates and completes a redirect-based login against an IdP.
// Used for the operator/staff login mode.
type SSOProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque
	// state, and a nonce.
	Begin(ctx context.Context, in SSOBeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the flow, verifying state and nonce, and returns the
	// authenticated identity.
	Exchange(ctx context.Context, in SSOExchangeInput) (identity.Identity, error)
}

// SessionStore persists and retrieves server-side sessions.
type SessionStore interface {
	Save(ctx context.Context, sess identity.Session) error
	Get(ctx context.Context, id string) (identity.Session, error)
	Delete(ctx context.Context, id string) error
}

// ProfileStore reads and maintains application profiles.
type ProfileStore interface {
	// Fetch returns the profile for a user id, or ErrProfileNotFound.
	Fetch(ctx context.Context, userID string) (identity.Profile, error)

	// EnsureExists invokes the idempotent server-side creation call for the
	// given identity; succeeding when the row already exists.
	EnsureExists(ctx context.Context, ident identity.Identity) error

	// ResolveIdentifier maps a username or phone number to the account email,
	// or ErrAccountNotFound. Callers pass identifiers without an "@".
	ResolveIdentifier(ctx context.Context, identifier string) (string, error)
}

// RoleMapper derives the application role set from provider metadata.
type RoleMapper interface {
	Map(metadata map[string]any) (identity.RoleSet, error)
}
