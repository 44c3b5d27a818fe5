package httpx

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

// StateSubscriber is the slice of the session manager the event stream uses.
type StateSubscriber interface {
	Subscribe(sessionID string) (<-chan identity.State, func())
}

// EventHandlers streams identity state changes to clients over SSE. This is
// how a tab learns that another tab logged in, logged out, or picked up a new
// role without polling.
type EventHandlers struct {
	Manager StateSubscriber
	Logger  *slog.Logger
}

// Stream handles GET /api/session/events.
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := ""
	if c, err := r.Cookie(SessionCookieName); err == nil {
		sessionID = c.Value
	}
	if sessionID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errNoSessionCookie,
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	states, cancel := h.Manager.Subscribe(sessionID)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case st := <-states:
			if err := writeStateEvent(w, st); err != nil {
				// Client is gone; the deferred cancel drops the watcher.
				return
			}
			flusher.Flush()
		}
	}
}

func writeStateEvent(w http.ResponseWriter, st identity.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload)
	return err
}

var errNoSessionCookie = fmt.Errorf("no session cookie")
