package identity

// Package identity contains simple hand-written test doubles for identity
// ports. These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sync"
	"time"

	domainid "github.com/civisim/civisim-api/internal/domain/identity"
	"github.com/civisim/civisim-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Authenticator = (*StubAuthenticator)(nil)
	_ ports.SSOProvider   = (*StubSSOProvider)(nil)
	_ ports.SessionStore  = (*MemorySessionStore)(nil)
	_ ports.ProfileStore  = (*MemoryProfileStore)(nil)
	_ ports.RoleMapper    = (*StaticRoleMapper)(nil)
)

// StubAuthenticator simulates the identity backend's password flow. Accounts
// maps email to password; unknown pairs fail sign-in.
type StubAuthenticator struct {
	SignInFunc         func(ctx context.Context, email, password string) (ports.SignInResult, error)
	SignOutFunc        func(ctx context.Context, refreshToken string) error
	ResetPasswordFunc  func(ctx context.Context, email, redirectURL string) error
	UpdatePasswordFunc func(ctx context.Context, accessToken, newPassword string) error

	Accounts map[string]string
	// Metadata is attached to every issued identity.
	Metadata map[string]any

	SignUps       []ports.SignUpInput
	RevokedTokens []string
	// SignInCalls counts password verification attempts, including failed ones.
	SignInCalls int
}

// NewStubAuthenticator creates a StubAuthenticator with one known account.
func NewStubAuthenticator() *StubAuthenticator {
	return &StubAuthenticator{
		Accounts: map[string]string{"cidadao@example.com": "s3nha-forte"},
	}
}

func (s *StubAuthenticator) SignIn(ctx context.Context, email, password string) (ports.SignInResult, error) {
	s.SignInCalls++
	if s.SignInFunc != nil {
		return s.SignInFunc(ctx, email, password)
	}
	if pw, ok := s.Accounts[email]; !ok || pw != password {
		return ports.SignInResult{}, errInvalidCredentials
	}
	now := time.Now()
	return ports.SignInResult{
		Identity: domainid.Identity{
			UserID:    "user-" + email,
			Email:     email,
			Metadata:  s.Metadata,
			ExpiresAt: now.Add(time.Hour),
		},
		Credential: domainid.Credential{
			AccessToken:  "stub-access",
			RefreshToken: "stub-refresh",
			ExpiresAt:    now.Add(time.Hour),
		},
	}, nil
}

func (s *StubAuthenticator) SignUp(_ context.Context, in ports.SignUpInput) error {
	s.SignUps = append(s.SignUps, in)
	return nil
}

func (s *StubAuthenticator) SignOut(ctx context.Context, refreshToken string) error {
	if s.SignOutFunc != nil {
		return s.SignOutFunc(ctx, refreshToken)
	}
	s.RevokedTokens = append(s.RevokedTokens, refreshToken)
	return nil
}

func (s *StubAuthenticator) ResetPassword(ctx context.Context, email, redirectURL string) error {
	if s.ResetPasswordFunc != nil {
		return s.ResetPasswordFunc(ctx, email, redirectURL)
	}
	return nil
}

func (s *StubAuthenticator) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	if s.UpdatePasswordFunc != nil {
		return s.UpdatePasswordFunc(ctx, accessToken, newPassword)
	}
	return nil
}

var errInvalidCredentials = errors.New("invalid credentials")

// StubSSOProvider simulates a redirect-based IdP with deterministic
// state/nonce values.
type StubSSOProvider struct {
	ExchangeFunc func(ctx context.Context, in ports.SSOExchangeInput) (domainid.Identity, error)

	AuthURL  string
	Operator domainid.Identity
}

func (s *StubSSOProvider) Begin(_ context.Context, _ ports.SSOBeginInput) (string, string, string, error) {
	authURL := s.AuthURL
	if authURL == "" {
		authURL = "https://stub-idp/auth"
	}
	return authURL, "stub-state", "stub-nonce", nil
}

func (s *StubSSOProvider) Exchange(ctx context.Context, in ports.SSOExchangeInput) (domainid.Identity, error) {
	if s.ExchangeFunc != nil {
		return s.ExchangeFunc(ctx, in)
	}
	op := s.Operator
	if op.UserID == "" {
		op = domainid.Identity{
			UserID:   "operator-1",
			Email:    "operator@example.com",
			Metadata: map[string]any{"roles": []any{"admin"}},
		}
	}
	op.ExpiresAt = time.Now().Add(time.Hour)
	return op, nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainid.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainid.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainid.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainid.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainid.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// MemoryProfileStore is an in-memory profile store. EnsureExists seeds a
// citizen profile the way the database function does.
type MemoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]domainid.Profile

	FetchErr  error // forced failure for fail-closed tests
	EnsureErr error
}

// NewMemoryProfileStore creates an empty in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]domainid.Profile)}
}

// Put stores a profile directly.
func (m *MemoryProfileStore) Put(p domainid.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
}

func (m *MemoryProfileStore) Fetch(_ context.Context, userID string) (domainid.Profile, error) {
	if m.FetchErr != nil {
		return domainid.Profile{}, m.FetchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return domainid.Profile{}, ports.ErrProfileNotFound
	}
	return p, nil
}

func (m *MemoryProfileStore) EnsureExists(_ context.Context, ident domainid.Identity) error {
	if m.EnsureErr != nil {
		return m.EnsureErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[ident.UserID]; ok {
		return nil
	}
	m.profiles[ident.UserID] = domainid.Profile{
		UserID:    ident.UserID,
		Username:  ident.Email,
		Email:     ident.Email,
		Phone:     ident.Phone,
		Roles:     domainid.NewRoleSet(domainid.RoleCitizen),
		CreatedAt: time.Now(),
	}
	return nil
}

func (m *MemoryProfileStore) MarkOnboarded(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return ports.ErrProfileNotFound
	}
	p.OnboardingDone = true
	m.profiles[userID] = p
	return nil
}

func (m *MemoryProfileStore) ResolveIdentifier(_ context.Context, identifier string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Username == identifier || (p.Phone != "" && p.Phone == identifier) {
			return p.Email, nil
		}
	}
	return "", ports.ErrAccountNotFound
}

// StaticRoleMapper returns a fixed role set regardless of metadata.
type StaticRoleMapper struct {
	Roles domainid.RoleSet
	Err   error
}

func (m StaticRoleMapper) Map(_ map[string]any) (domainid.RoleSet, error) {
	if m.Err != nil {
		return domainid.RoleSet{}, m.Err
	}
	if m.Roles.IsEmpty() {
		return domainid.NewRoleSet(domainid.RoleCitizen), nil
	}
	return m.Roles, nil
}
