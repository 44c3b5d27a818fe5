package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

// Guards translate domain guard decisions into HTTP behavior. The state they
// evaluate comes from the ResolveIdentity middleware, so by the time a guard
// runs the state has settled; the pending branch only fires when a handler is
// mounted without the resolution middleware.

// RequireSession guards content that needs any authenticated profile.
// Anonymous browser requests get the auth wall; API requests get 401.
func RequireSession(next http.Handler) http.Handler {
	return decide(next, func(st identity.State) identity.Decision {
		return identity.DecideSession(st)
	})
}

// RequireAdminHome guards the admin entry from the public shell: any visitor
// who is not an admin is sent home without an error surface.
func RequireAdminHome(next http.Handler) http.Handler {
	return decide(next, func(st identity.State) identity.Decision {
		return identity.DecideAdminHome(st)
	})
}

// RequireRoles guards content restricted to the given role set.
func RequireRoles(allowed identity.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return decide(next, func(st identity.State) identity.Decision {
			return identity.DecideRoles(st, allowed)
		})
	}
}

// RequireAdminArea guards the dedicated admin area: anonymous visitors go to
// the login page, authenticated non-admins see a 403 in place.
func RequireAdminArea(next http.Handler) http.Handler {
	return decide(next, func(st identity.State) identity.Decision {
		return identity.DecideAdminArea(st)
	})
}

func decide(next http.Handler, eval func(identity.State) identity.Decision) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := eval(StateFromContext(r.Context()))
		switch d.Verdict {
		case identity.VerdictGranted:
			next.ServeHTTP(w, r)
		case identity.VerdictPending:
			// Resolution has not settled. Never deny from a pending state.
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		default:
			renderDenial(w, r, d)
		}
	})
}

func renderDenial(w http.ResponseWriter, r *http.Request, d identity.Decision) {
	switch d.Fallback {
	case identity.FallbackRedirect:
		// Replace-style navigation: See Other keeps history clean.
		http.Redirect(w, r, d.Target, http.StatusSeeOther)
	case identity.FallbackForbidden:
		if IsBrowserRequest(r) {
			http.Error(w, "Access Denied: you don't have permission to access this area", http.StatusForbidden)
			return
		}
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "insufficient_permissions",
			Err:     errors.New("insufficient permissions"),
		})
	default: // FallbackAuthWall
		renderAuthWall(w, r)
	}
}

// renderAuthWall answers an anonymous request to protected content with an
// in-place "Access Restricted" wall: no navigation away, just the sign-in and
// registration actions. API callers get a structured 401 so the client can
// raise its own sign-in surface.
func renderAuthWall(w http.ResponseWriter, r *http.Request) {
	if IsBrowserRequest(r) {
		returnTo := url.QueryEscape(safeRedirectPath(r.URL.RequestURI()))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprintf(w, authWallHTML, returnTo, returnTo)
		return
	}
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "authentication_required",
		Err:     errors.New("authentication required"),
	})
}

const authWallHTML = `<!doctype html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Acesso restrito</title></head>
<body>
<main>
<h1>Acesso restrito</h1>
<p>Você precisa de uma conta para ver este conteúdo.</p>
<p><a href="/login?redirect_uri=%s">Entrar</a> <a href="/register?redirect_uri=%s">Criar conta</a></p>
</main>
</body>
</html>
`
