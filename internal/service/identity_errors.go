package service

import "fmt"

// AuthenticationError reports a failed login. Reason is safe to surface to
// the user; the wrapped error carries provider detail for logs only.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ProfileResolutionError reports a failure while settling a session's profile.
// Any such failure forces a logout; a session must never be observable without
// a matching profile.
type ProfileResolutionError struct {
	Stage string // fetch, ensure, refetch, roles
	Err   error
}

func (e *ProfileResolutionError) Error() string {
	return fmt.Sprintf("profile resolution failed at %s: %v", e.Stage, e.Err)
}

func (e *ProfileResolutionError) Unwrap() error { return e.Err }

// PasswordResetError reports a failed recovery-email request.
type PasswordResetError struct {
	Err error
}

func (e *PasswordResetError) Error() string { return fmt.Sprintf("password reset failed: %v", e.Err) }
func (e *PasswordResetError) Unwrap() error { return e.Err }

// PasswordUpdateError reports a failed password change for a live session.
type PasswordUpdateError struct {
	Err error
}

func (e *PasswordUpdateError) Error() string {
	return fmt.Sprintf("password update failed: %v", e.Err)
}
func (e *PasswordUpdateError) Unwrap() error { return e.Err }
