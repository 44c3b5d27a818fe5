package httpx

import (
	"context"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

// stateKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type stateKey struct{}

// SetStateInContext returns a child context carrying the resolved identity state.
func SetStateInContext(ctx context.Context, st identity.State) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

// StateFromContext returns the identity state stored by the resolution
// middleware. Requests that bypassed the middleware read as anonymous.
func StateFromContext(ctx context.Context) identity.State {
	if st, ok := ctx.Value(stateKey{}).(identity.State); ok {
		return st
	}
	return identity.AnonymousState()
}

// SessionFromContext returns the current session and a presence flag.
func SessionFromContext(ctx context.Context) (*identity.Session, bool) {
	st := StateFromContext(ctx)
	if st.Session == nil {
		return nil, false
	}
	return st.Session, true
}

// ProfileFromContext returns the current profile and a presence flag.
func ProfileFromContext(ctx context.Context) (*identity.Profile, bool) {
	st := StateFromContext(ctx)
	if st.User == nil {
		return nil, false
	}
	return st.User, true
}
