package identity

import (
	"testing"
	"time"
)

func TestState_Loading(t *testing.T) {
	if !(State{Phase: PhaseInitializing}).Loading() {
		t.Fatalf("initializing must be loading")
	}
	if !ResolvingState(&Session{ID: "s"}).Loading() {
		t.Fatalf("profile-resolving must be loading")
	}
	if AnonymousState().Loading() {
		t.Fatalf("anonymous is settled")
	}
}

func TestState_SettledInvariant(t *testing.T) {
	// Post-settle, a session is never observable without a profile.
	st := ReadyState(&Session{ID: "s", UserID: "u"}, &Profile{UserID: "u"})
	if !st.Authenticated() {
		t.Fatalf("ready state must be authenticated")
	}
	torn := State{Session: &Session{ID: "s"}, Phase: PhaseAnonymous}
	if torn.Authenticated() {
		t.Fatalf("session without profile must not read as authenticated")
	}
}

func TestSession_IsExpired(t *testing.T) {
	s := Session{ExpiresAt: time.Now().Add(-time.Minute)}
	if !s.IsExpired(time.Now()) {
		t.Fatalf("expected expired")
	}
}
