package httpx

import (
	"net/http"
	"time"
)

// ConsentCookieName marks that the visitor acknowledged the cookie notice.
// It is deliberately not HttpOnly: the frontend reads it to decide whether to
// show the banner without a round trip.
const ConsentCookieName = "civisim_consent"

const consentMaxAge = int(180 * 24 * time.Hour / time.Second)

// ConsentHandlers manages the cookie-consent acknowledgement.
type ConsentHandlers struct {
	CookieDomain string
}

// Get reports whether consent was recorded.
// GET /api/consent.
func (h *ConsentHandlers) Get(w http.ResponseWriter, r *http.Request) {
	accepted := false
	if c, err := r.Cookie(ConsentCookieName); err == nil && c.Value == "accepted" {
		accepted = true
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}

// Accept records consent.
// POST /api/consent.
func (h *ConsentHandlers) Accept(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     ConsentCookieName,
		Value:    "accepted",
		Path:     "/",
		Domain:   h.CookieDomain,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   consentMaxAge,
	})
	WriteJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}
