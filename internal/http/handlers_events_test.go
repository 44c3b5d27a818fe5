package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

type fakeSubscriber struct {
	states    chan identity.State
	gotID     string
	cancelled bool
}

func (f *fakeSubscriber) Subscribe(sessionID string) (<-chan identity.State, func()) {
	f.gotID = sessionID
	return f.states, func() { f.cancelled = true }
}

func TestStream_RequiresSessionCookie(t *testing.T) {
	h := &EventHandlers{Manager: &fakeSubscriber{}}

	r := httptest.NewRequest(http.MethodGet, "/api/session/events", nil)
	w := httptest.NewRecorder()
	h.Stream(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStream_EmitsStateEventsUntilClientGoesAway(t *testing.T) {
	sub := &fakeSubscriber{states: make(chan identity.State)}
	h := &EventHandlers{Manager: sub}

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/api/session/events", nil).WithContext(ctx)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Stream(w, r)
		close(done)
	}()

	// handshake: the send only completes once the handler is subscribed
	sub.states <- stateFor(identity.RoleCitizen)
	cancel()
	<-done

	assert.Equal(t, "sess-1", sub.gotID)
	assert.True(t, sub.cancelled)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: session\n")
	assert.Contains(t, body, `"phase":"profile-ready"`)
}
