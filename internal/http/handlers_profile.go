package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

// ProfileWriter is the slice of the profile store the handlers mutate through.
type ProfileWriter interface {
	MarkOnboarded(ctx context.Context, userID string) error
}

// ProfileRefresher re-resolves a session's profile after a mutation.
type ProfileRefresher interface {
	RefreshProfile(ctx context.Context, sessionID string) (identity.State, error)
}

// ProfileHandlers serves the authenticated user's profile and dashboard.
// All routes are mounted behind RequireSession, so the profile is present.
type ProfileHandlers struct {
	Profiles  ProfileWriter
	Refresher ProfileRefresher
	Events    SessionInvalidator // optional
	Logger    *slog.Logger
}

// Get returns the current profile.
// GET /api/profile.
func (h *ProfileHandlers) Get(w http.ResponseWriter, r *http.Request) {
	profile, ok := ProfileFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

// CompleteOnboarding marks the first-login flow as done and returns the
// refreshed state.
// POST /api/profile/onboarding.
func (h *ProfileHandlers) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	st := StateFromContext(r.Context())
	if !st.Authenticated() {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	if err := h.Profiles.MarkOnboarded(r.Context(), st.User.UserID); err != nil {
		WriteAppError(w, err)
		return
	}

	refreshed, err := h.Refresher.RefreshProfile(r.Context(), st.Session.ID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if h.Events != nil {
		h.Events.Invalidate(st.Session.ID)
	}
	WriteJSON(w, http.StatusOK, refreshed)
}

// Dashboard returns the panel for the profile's primary role. The role set is
// closed, so every profile maps to exactly one panel.
// GET /api/dashboard.
func (h *ProfileHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	profile, ok := ProfileFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, identity.PanelForProfile(*profile))
}
