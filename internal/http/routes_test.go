package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civisim/civisim-api/internal/domain/identity"
	idmocks "github.com/civisim/civisim-api/internal/mocks/identity"
	"github.com/civisim/civisim-api/internal/service"
)

// newTestRouter wires the router against the in-memory identity stack so the
// full path cookie -> middleware -> guard -> handler is exercised.
func newTestRouter(t *testing.T) (http.Handler, *idmocks.MemoryProfileStore) {
	t.Helper()
	profiles := idmocks.NewMemoryProfileStore()
	svc := service.NewIdentityService(service.IdentityServiceOptions{
		Auth:     idmocks.NewStubAuthenticator(),
		Sessions: idmocks.NewMemorySessionStore(),
		Profiles: profiles,
		Roles:    &idmocks.StaticRoleMapper{},
		Logger:   discardLogger(),
	})
	router := NewRouter(RouterServices{
		Identity: svc,
		Resolver: svc,
		Profiles: profiles,
		Gates: map[string]identity.ServiceGate{
			"tribunal": {
				Privileged:  identity.NewRoleSet(identity.RoleJuiz),
				CitizenPath: "/justica/processos",
				PanelPath:   "/justica/tribunal",
			},
		},
		Logger: discardLogger(),
	})
	return router, profiles
}

func doLogin(t *testing.T, router http.Handler) *http.Cookie {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"identifier":"cidadao@example.com","password":"s3nha-forte"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	c := sessionCookie(t, w)
	require.NotNil(t, c)
	return c
}

func TestRouter_LoginThenProfile(t *testing.T) {
	router, _ := newTestRouter(t)
	cookie := doLogin(t, router)

	r := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var profile identity.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.True(t, profile.Roles.Has(identity.RoleCitizen))
}

func TestRouter_OnboardingMarksProfile(t *testing.T) {
	router, _ := newTestRouter(t)
	cookie := doLogin(t, router)

	r := httptest.NewRequest(http.MethodPost, "/api/profile/onboarding", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var profile identity.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.True(t, profile.OnboardingDone)
}

func TestRouter_ProfileWithoutSessionIs401(t *testing.T) {
	router, _ := newTestRouter(t)

	r := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication_required")
}

func TestRouter_AdminEntryRedirectsCitizenHome(t *testing.T) {
	router, _ := newTestRouter(t)
	cookie := doLogin(t, router)

	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.Header.Set("Accept", "text/html")
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestRouter_GateSeesResolvedRoles(t *testing.T) {
	router, _ := newTestRouter(t)
	cookie := doLogin(t, router)

	r := httptest.NewRequest(http.MethodGet, "/services/tribunal", nil)
	r.Header.Set("Accept", "text/html")
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	// a plain citizen goes straight to the citizen view
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/justica/processos", w.Header().Get("Location"))
}

func TestRouter_LogoutInvalidatesSession(t *testing.T) {
	router, _ := newTestRouter(t)
	cookie := doLogin(t, router)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	// the old cookie no longer resolves
	r = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Phase string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "anonymous", body.Phase)
}

func TestRouter_StaleCookieSettlesAnonymous(t *testing.T) {
	router, _ := newTestRouter(t)

	r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "never-issued"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Phase string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "anonymous", body.Phase)
}

func TestRouter_Healthz(t *testing.T) {
	router, _ := newTestRouter(t)

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}
