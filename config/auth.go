package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModePassword authenticates against the identity backend's
	// password grant.
	AuthModePassword AuthMode = "password"
	// AuthModeMock uses the in-process dev authenticator (development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "password", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: password, mock)", v)
	}
}

// ProviderConfig configures the identity backend client used for the
// password grant, sign-up, and token revocation.
type ProviderConfig struct {
	// BaseURL is the backend's auth endpoint root, e.g. "https://id.example.com/auth/v1".
	BaseURL string `env:"BASE_URL"`
	// AnonKey is the publishable API key sent with every request.
	AnonKey string `env:"ANON_KEY"`
}

// SSOConfig configures the optional OIDC operator login.
type SSOConfig struct {
	Enabled      bool   `env:"ENABLED"       envDefault:"false"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/sso/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls the dev authenticator identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID   string   `env:"USER_ID"  envDefault:"dev-user"`
	Email    string   `env:"EMAIL"    envDefault:"dev@example.com"`
	Password string   `env:"PASSWORD" envDefault:"dev-password"`
	Roles    []string `env:"ROLES"    envDefault:"citizen"      envSeparator:";"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"password"`

	// Provider configuration (used when Mode=password).
	Provider ProviderConfig `envPrefix:"AUTH_PROVIDER_"`

	// SSO configuration for the OIDC operator login.
	SSO SSOConfig `envPrefix:"SSO_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// RoleClaimPath is the JMESPath expression that extracts role tags from
	// the identity provider's claims document.
	RoleClaimPath string `env:"AUTH_ROLE_CLAIM_PATH" envDefault:"app_metadata.roles"`
}

// Validate reports mode-specific configuration errors.
func (a *AuthConfig) Validate(isDev bool) error {
	switch a.Mode {
	case AuthModePassword:
		if a.Provider.BaseURL == "" {
			return fmt.Errorf("AUTH_PROVIDER_BASE_URL is required when AUTH_MODE=password")
		}
		if a.Provider.AnonKey == "" {
			return fmt.Errorf("AUTH_PROVIDER_ANON_KEY is required when AUTH_MODE=password")
		}
	case AuthModeMock:
		if !isDev {
			return fmt.Errorf("AUTH_MODE=mock is only allowed in development mode")
		}
	}
	if a.SSO.Enabled {
		if a.SSO.ClientID == "" || a.SSO.ClientSecret == "" {
			return fmt.Errorf("SSO_CLIENT_ID and SSO_CLIENT_SECRET are required when SSO_ENABLED=true")
		}
		if a.SSO.DiscoveryURL == "" {
			return fmt.Errorf("SSO_DISCOVERY_URL is required when SSO_ENABLED=true")
		}
	}
	return nil
}
