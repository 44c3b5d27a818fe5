package identity

import "encoding/json"

// Phase is the lifecycle phase of the session/identity state machine.
//
// Initializing -> {Anonymous, ProfileResolving}
// ProfileResolving -> {ProfileReady, Anonymous}
// Anonymous <-> ProfileResolving (login / logout, forced or explicit)
//
// Anonymous and ProfileReady are the two stable resting phases; the machine
// is long-lived and has no terminal phase.
type Phase int

const (
	// PhaseInitializing is the initial restore-from-storage step.
	PhaseInitializing Phase = iota
	// PhaseAnonymous means no session exists.
	PhaseAnonymous
	// PhaseProfileResolving means a session exists and its profile is being fetched.
	PhaseProfileResolving
	// PhaseProfileReady means session and profile are both present and consistent.
	PhaseProfileReady
)

// String returns the phase name for logging.
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseProfileResolving:
		return "profile-resolving"
	case PhaseProfileReady:
		return "profile-ready"
	default:
		return "unknown"
	}
}

// State is the snapshot consumers read. Loading is true exactly while the
// machine is in a non-resting phase; consumers must treat Loading as
// "decision pending", never as "denied".
//
// Invariant, once Loading is false: User != nil iff Session != nil.
type State struct {
	Session *Session `json:"session"`
	User    *Profile `json:"user"`
	Phase   Phase    `json:"-"`
}

// MarshalJSON includes the phase name so API clients can tell a settled
// anonymous state from one that is still resolving.
func (s State) MarshalJSON() ([]byte, error) {
	type alias State
	return json.Marshal(struct {
		alias
		Phase string `json:"phase"`
	}{alias(s), s.Phase.String()})
}

// Loading reports whether identity resolution has not settled yet.
func (s State) Loading() bool {
	return s.Phase == PhaseInitializing || s.Phase == PhaseProfileResolving
}

// Authenticated reports whether the state settled with a live session.
func (s State) Authenticated() bool {
	return !s.Loading() && s.Session != nil && s.User != nil
}

// AnonymousState is the settled state with no session.
func AnonymousState() State {
	return State{Phase: PhaseAnonymous}
}

// ReadyState is the settled state for a resolved session/profile pair.
func ReadyState(sess *Session, user *Profile) State {
	return State{Session: sess, User: user, Phase: PhaseProfileReady}
}

// ResolvingState is the transitional state while the profile for sess is fetched.
func ResolvingState(sess *Session) State {
	return State{Session: sess, Phase: PhaseProfileResolving}
}
