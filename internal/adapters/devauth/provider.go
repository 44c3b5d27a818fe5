package devauth

// Package devauth provides a config-driven Authenticator for local development.
// It accepts exactly one configured account and never talks to a network.

import (
	"context"
	"errors"
	"time"

	"github.com/civisim/civisim-api/internal/domain/identity"
	apperrors "github.com/civisim/civisim-api/internal/errors"
	"github.com/civisim/civisim-api/internal/ports"
)

// Config controls the dev authenticator. Email and Password are required.
type Config struct {
	UserID          string
	Email           string
	Password        string
	Roles           []string      // raw role tags placed into metadata
	SessionDuration time.Duration // default 8h when zero
}

var _ ports.Authenticator = (*Provider)(nil)

// Provider implements ports.Authenticator for local development.
type Provider struct {
	cfg Config
	dur time.Duration
}

// NewProvider constructs a dev authenticator from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	if cfg.Password == "" {
		return nil, errors.New("dev auth: Password is required")
	}
	if cfg.UserID == "" {
		cfg.UserID = "dev-user"
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	return &Provider{cfg: cfg, dur: dur}, nil
}

func (p *Provider) SignIn(_ context.Context, email, password string) (ports.SignInResult, error) {
	if email != p.cfg.Email || password != p.cfg.Password {
		return ports.SignInResult{}, apperrors.Unauthenticated("invalid credentials")
	}

	roles := make([]any, 0, len(p.cfg.Roles))
	for _, r := range p.cfg.Roles {
		roles = append(roles, r)
	}

	expiresAt := time.Now().Add(p.dur)
	return ports.SignInResult{
		Identity: identity.Identity{
			UserID:    p.cfg.UserID,
			Email:     p.cfg.Email,
			Metadata:  map[string]any{"roles": roles},
			ExpiresAt: expiresAt,
		},
		Credential: identity.Credential{
			AccessToken:  "dev-access-token",
			RefreshToken: "dev-refresh-token",
			ExpiresAt:    expiresAt,
		},
	}, nil
}

func (p *Provider) SignUp(_ context.Context, _ ports.SignUpInput) error {
	// The dev account is fixed; sign-up is accepted and discarded so the
	// registration flow can be exercised locally.
	return nil
}

func (p *Provider) SignOut(_ context.Context, refreshToken string) error {
	if refreshToken != "dev-refresh-token" {
		return ports.ErrRefreshTokenNotFound
	}
	return nil
}

func (p *Provider) ResetPassword(_ context.Context, email, _ string) error {
	if email == "" {
		return apperrors.Validation("email is required")
	}
	return nil
}

func (p *Provider) UpdatePassword(_ context.Context, accessToken, newPassword string) error {
	if accessToken == "" {
		return apperrors.Unauthenticated("access token is required")
	}
	if newPassword == "" {
		return apperrors.Validation("new password is required")
	}
	return nil
}
