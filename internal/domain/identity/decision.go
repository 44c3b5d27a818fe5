package identity

// Guard decisions are pure functions of a settled-or-not State plus static
// configuration. They are recomputed on every evaluation and hold no state of
// their own, so re-evaluating with unchanged inputs yields the same decision.

// Verdict is the tri-state outcome of a guard evaluation.
type Verdict int

const (
	// VerdictPending means identity resolution has not settled; no decision is
	// made and the caller must render a neutral waiting state.
	VerdictPending Verdict = iota
	// VerdictDenied means access is refused; Decision.Fallback says how.
	VerdictDenied
	// VerdictGranted means the protected content may be served.
	VerdictGranted
)

// Fallback describes how a denial is presented.
type Fallback int

const (
	// FallbackNone applies to pending/granted decisions.
	FallbackNone Fallback = iota
	// FallbackAuthWall renders an inline "Access Restricted" wall offering
	// sign-in and registration, without navigating away.
	FallbackAuthWall
	// FallbackRedirect issues a replace-style navigation to Decision.Target.
	FallbackRedirect
	// FallbackForbidden renders an "Access Denied" error view in place.
	FallbackForbidden
)

// Decision is the result of evaluating a guard against a state.
type Decision struct {
	Verdict  Verdict
	Fallback Fallback
	Target   string // redirect target when Fallback is FallbackRedirect
}

func pending() Decision { return Decision{Verdict: VerdictPending} }
func granted() Decision { return Decision{Verdict: VerdictGranted} }

func deniedWall() Decision {
	return Decision{Verdict: VerdictDenied, Fallback: FallbackAuthWall}
}

func deniedRedirect(target string) Decision {
	return Decision{Verdict: VerdictDenied, Fallback: FallbackRedirect, Target: target}
}

func deniedForbidden() Decision {
	return Decision{Verdict: VerdictDenied, Fallback: FallbackForbidden}
}

// DecideSession is the plain auth gate: any authenticated profile passes;
// anonymous visitors get the inline auth wall.
func DecideSession(st State) Decision {
	if st.Loading() {
		return pending()
	}
	if !st.Authenticated() {
		return deniedWall()
	}
	return granted()
}

// DecideAdminHome is the single-role admin gate: both the unauthenticated and
// the wrong-role case redirect home rather than surfacing an error.
func DecideAdminHome(st State) Decision {
	if st.Loading() {
		return pending()
	}
	if !st.Authenticated() || !st.User.Roles.Has(RoleAdmin) {
		return deniedRedirect("/")
	}
	return granted()
}

// DecideRoles is the multi-role gate: anonymous visitors get the auth wall,
// authenticated visitors outside the allowed set get an in-place error view.
func DecideRoles(st State, allowed RoleSet) Decision {
	if st.Loading() {
		return pending()
	}
	if !st.Authenticated() {
		return deniedWall()
	}
	if !st.User.Roles.Intersects(allowed) {
		return deniedForbidden()
	}
	return granted()
}

// DecideAdminArea is the strict admin-area gate: anonymous visitors are sent
// to the login page; authenticated non-admins get a 403 view in place.
func DecideAdminArea(st State) Decision {
	if st.Loading() {
		return pending()
	}
	if !st.Authenticated() {
		return deniedRedirect("/login")
	}
	if !st.User.Roles.Has(RoleAdmin) {
		return deniedForbidden()
	}
	return granted()
}

// GateOutcome is the three-way result of the service access gate.
type GateOutcome int

const (
	// GatePending mirrors VerdictPending.
	GatePending GateOutcome = iota
	// GateLogin navigates to the login page, preserving the citizen path as
	// return state.
	GateLogin
	// GateCitizen navigates directly to the citizen view.
	GateCitizen
	// GateChoice presents the two-action disambiguation dialog; the visitor
	// must choose, there is no default navigation.
	GateChoice
	// GateSetup routes the visitor to the service's setup flow when the
	// backing resource is missing.
	GateSetup
)

// ServiceGate configures a role-dual service entry point.
type ServiceGate struct {
	// Privileged is the role set that unlocks the operator panel.
	Privileged RoleSet
	// CitizenPath is the citizen-facing view of the service.
	CitizenPath string
	// PanelPath is the privileged operator panel.
	PanelPath string
	// HasResource reports whether the profile already holds the resource the
	// citizen view depends on (a bank account, a registered docket). Nil means
	// the service needs no resource.
	HasResource func(st State) bool
	// SetupPath is where visitors without the resource go. Required when
	// HasResource is set.
	SetupPath string
}

// Decide evaluates the gate. The privileged branch is a set-intersection test:
// a profile role set that shares any role with Privileged qualifies for the
// panel and therefore gets the disambiguation choice. The resource check only
// applies to the citizen branch; operators reach the panel regardless.
func (g ServiceGate) Decide(st State) GateOutcome {
	if st.Loading() {
		return GatePending
	}
	if !st.Authenticated() {
		return GateLogin
	}
	if st.User.Roles.Intersects(g.Privileged) {
		return GateChoice
	}
	if g.HasResource != nil && !g.HasResource(st) {
		return GateSetup
	}
	return GateCitizen
}
