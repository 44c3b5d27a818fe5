package identity

// Package identity contains domain-level types for the platform's
// session/identity lifecycle. It is pure and free of framework/adapter concerns.

import "time"

// Identity represents the authenticated principal returned by the identity backend.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID string `json:"user_id"` // stable user identifier (provider sub)
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	// Metadata is the raw app metadata used for role mapping.
	Metadata map[string]any `json:"metadata,omitempty"`
	// ExpiresAt is the absolute expiry of the provider token.
	ExpiresAt time.Time `json:"expires_at"`
}

// Credential is the opaque token pair issued by the identity backend.
// The tokens are never interpreted by this service beyond passing them back
// to the provider.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (random URL-safe string); the credential
// pair belongs to the identity backend and is replaced wholesale on refresh.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// Identity carries the principal as issued at login; profile resolution
	// reads its metadata for role mapping.
	Identity   Identity   `json:"identity"`
	Credential Credential `json:"credential"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

// IsExpired reports whether the session is past its expiry.
func (s Session) IsExpired(now time.Time) bool { return now.After(s.ExpiresAt) }

// Profile is the application-level user record keyed by the session's identity.
// Role authority is read exclusively from Roles; a Session must never be
// observable without a matching Profile once resolution settles.
type Profile struct {
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Roles          RoleSet   `json:"roles"`
	OnboardingDone bool      `json:"onboarding_done"`
	SocialHandle   string    `json:"social_handle,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsCitizenOnly reports whether the profile holds no privileged role.
func (p Profile) IsCitizenOnly() bool {
	for _, r := range p.Roles.Values() {
		if r != RoleCitizen {
			return false
		}
	}
	return true
}
