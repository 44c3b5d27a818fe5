package ports

// Sentinel errors shared by all adapter implementations so services can
// branch on them with errors.Is regardless of the backing store.

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

var (
	// ErrProfileNotFound is returned by ProfileStore.Fetch when no profile row
	// exists for the identity.
	ErrProfileNotFound error = notFoundError("profile not found")

	// ErrAccountNotFound is returned by ProfileStore.ResolveIdentifier when a
	// username or phone number does not map to any account.
	ErrAccountNotFound error = notFoundError("account not found")

	// ErrSessionNotFound is returned by SessionStore.Get for unknown or
	// expired session ids.
	ErrSessionNotFound error = notFoundError("session not found")

	// ErrRefreshTokenNotFound is returned (wrapped) by Authenticator.SignOut
	// when the backend reports the refresh token as already revoked. Callers
	// treat it as an already-signed-out state, not a failure.
	ErrRefreshTokenNotFound error = notFoundError("refresh token not found")
)
