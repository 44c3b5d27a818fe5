package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

func requestIsSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// setSessionCookie writes the session cookie based on the session's expiry.
func setSessionCookie(w http.ResponseWriter, r *http.Request, s identity.Session, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
	})
}

// clearSessionCookie expires the session cookie on the client. It mirrors the
// attributes used when setting the cookie so deletion works across browsers.
func clearSessionCookie(w http.ResponseWriter, r *http.Request, domain string) {
	clearCookie(w, r, SessionCookieName, domain)
}

func clearCookie(w http.ResponseWriter, r *http.Request, name, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

const oauthCookieTTL = 600 // 10 minutes

// oauthCookieParams groups the values stored between SSO begin and callback.
type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

func setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams, domain string) {
	isSecure := requestIsSecure(r)
	for name, value := range map[string]string{
		"oauth_state":         p.State,
		"oauth_nonce":         p.Nonce,
		"post_login_redirect": p.RedirectURI,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   domain,
			HttpOnly: true,
			Secure:   isSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   oauthCookieTTL,
		})
	}
}

// safeRedirectPath ensures the provided redirect is a same-origin relative
// path starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
