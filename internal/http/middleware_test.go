package httpx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

type resolverFunc func(ctx context.Context, sessionID string) (identity.State, error)

func (f resolverFunc) Resolve(ctx context.Context, sessionID string) (identity.State, error) {
	return f(ctx, sessionID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestResolveIdentity_PutsStateInContext(t *testing.T) {
	want := stateFor(identity.RoleCitizen)
	resolver := resolverFunc(func(_ context.Context, sessionID string) (identity.State, error) {
		assert.Equal(t, "sess-1", sessionID)
		return want, nil
	})

	var got identity.State
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = StateFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()
	ResolveIdentity(resolver, discardLogger())(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, got.Authenticated())
}

func TestResolveIdentity_FailureClearsCookieAndProceedsAnonymous(t *testing.T) {
	resolver := resolverFunc(func(_ context.Context, _ string) (identity.State, error) {
		return identity.AnonymousState(), errors.New("backend down")
	})

	var got identity.State
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = StateFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})
	w := httptest.NewRecorder()
	ResolveIdentity(resolver, discardLogger())(next).ServeHTTP(w, r)

	// request still reaches the handler, settled as anonymous
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, got.Authenticated())
	assert.False(t, got.Loading())

	c := sessionCookie(t, w)
	require.NotNil(t, c)
	assert.Negative(t, c.MaxAge)
}

func TestResolveIdentity_InterruptedResolutionKeepsCookie(t *testing.T) {
	resolver := resolverFunc(func(_ context.Context, _ string) (identity.State, error) {
		return identity.AnonymousState(), fmt.Errorf("resolve interrupted: %w", context.Canceled)
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-live"})
	w := httptest.NewRecorder()
	ResolveIdentity(resolver, discardLogger())(next).ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	// the session survived server-side, so the cookie must not be expired
	assert.Nil(t, sessionCookie(t, w))
}

func TestIsBrowserRequest(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		accept string
		want   bool
	}{
		{"api path is never a browser", "/api/session", "text/html", false},
		{"html accept", "/painel", "text/html,application/xhtml+xml", true},
		{"json accept", "/painel", "application/json", false},
		{"no accept header defaults to browser", "/painel", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				r.Header.Set("Accept", tt.accept)
			}
			assert.Equal(t, tt.want, IsBrowserRequest(r))
		})
	}
}

func TestBrowserDetection_StoresDecisionInContext(t *testing.T) {
	var inContext bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inContext = IsBrowserRequest(r)
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/painel", nil)
	r.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	BrowserDetection()(next).ServeHTTP(w, r)

	assert.True(t, inContext)
}

func TestRecover_TurnsPanicInto500(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	Recover(discardLogger())(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
