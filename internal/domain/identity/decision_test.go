package identity

import (
	"testing"
	"time"
)

func readyState(roles ...Role) State {
	sess := &Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	user := &Profile{UserID: "u1", Username: "ana", Roles: NewRoleSet(roles...)}
	return ReadyState(sess, user)
}

func TestDecideSession(t *testing.T) {
	if d := DecideSession(AnonymousState()); d.Verdict != VerdictDenied || d.Fallback != FallbackAuthWall {
		t.Fatalf("anonymous should hit the auth wall, got %+v", d)
	}
	if d := DecideSession(readyState(RoleCitizen)); d.Verdict != VerdictGranted {
		t.Fatalf("citizen should pass, got %+v", d)
	}
	if d := DecideSession(State{Phase: PhaseInitializing}); d.Verdict != VerdictPending {
		t.Fatalf("loading must yield pending, got %+v", d)
	}
}

func TestDecideAdminHome(t *testing.T) {
	d := DecideAdminHome(readyState(RoleCitizen))
	if d.Verdict != VerdictDenied || d.Fallback != FallbackRedirect || d.Target != "/" {
		t.Fatalf("citizen should redirect home, got %+v", d)
	}
	d = DecideAdminHome(AnonymousState())
	if d.Fallback != FallbackRedirect || d.Target != "/" {
		t.Fatalf("anonymous should redirect home, got %+v", d)
	}
	if d := DecideAdminHome(readyState(RoleAdmin)); d.Verdict != VerdictGranted {
		t.Fatalf("admin should pass, got %+v", d)
	}
}

func TestDecideRoles(t *testing.T) {
	allowed := NewRoleSet(RoleJuiz, RolePolice)

	if d := DecideRoles(AnonymousState(), allowed); d.Fallback != FallbackAuthWall {
		t.Fatalf("anonymous should get the wall, got %+v", d)
	}
	if d := DecideRoles(readyState(RoleCitizen), allowed); d.Fallback != FallbackForbidden {
		t.Fatalf("wrong role should get the in-place error view, got %+v", d)
	}
	if d := DecideRoles(readyState(RoleCitizen, RolePolice), allowed); d.Verdict != VerdictGranted {
		t.Fatalf("intersecting role set should pass, got %+v", d)
	}
}

func TestDecideAdminArea(t *testing.T) {
	d := DecideAdminArea(AnonymousState())
	if d.Fallback != FallbackRedirect || d.Target != "/login" {
		t.Fatalf("anonymous should redirect to /login, got %+v", d)
	}
	if d := DecideAdminArea(readyState(RoleMinistro)); d.Fallback != FallbackForbidden {
		t.Fatalf("non-admin should get 403 in place, got %+v", d)
	}
	if d := DecideAdminArea(readyState(RoleAdmin)); d.Verdict != VerdictGranted {
		t.Fatalf("admin should pass, got %+v", d)
	}
}

func TestDecisions_AreIdempotent(t *testing.T) {
	st := readyState(RoleCitizen)
	first := DecideAdminHome(st)
	for i := 0; i < 3; i++ {
		if got := DecideAdminHome(st); got != first {
			t.Fatalf("re-evaluation changed the decision: %+v vs %+v", got, first)
		}
	}
}

func TestServiceGate_Decide(t *testing.T) {
	gate := ServiceGate{
		Privileged:  NewRoleSet(RolePolice),
		CitizenPath: "/banco",
		PanelPath:   "/banco/operador",
	}

	if got := gate.Decide(State{Phase: PhaseProfileResolving, Session: &Session{ID: "s"}}); got != GatePending {
		t.Fatalf("loading must yield pending, got %v", got)
	}
	if got := gate.Decide(AnonymousState()); got != GateLogin {
		t.Fatalf("anonymous must route to login, got %v", got)
	}
	if got := gate.Decide(readyState(RoleCitizen)); got != GateCitizen {
		t.Fatalf("citizen must route directly, got %v", got)
	}
	if got := gate.Decide(readyState(RoleCitizen, RolePolice)); got != GateChoice {
		t.Fatalf("qualifying role must get the choice, got %v", got)
	}
}

func TestServiceGate_ResourceCheck(t *testing.T) {
	gate := ServiceGate{
		Privileged:  NewRoleSet(RoleMinistro),
		CitizenPath: "/banco/conta",
		PanelPath:   "/banco/operacoes",
		SetupPath:   "/banco/abrir-conta",
		HasResource: func(st State) bool { return false },
	}

	if got := gate.Decide(readyState(RoleCitizen)); got != GateSetup {
		t.Fatalf("missing resource must route to setup, got %v", got)
	}
	// Operators skip the resource check entirely.
	if got := gate.Decide(readyState(RoleCitizen, RoleMinistro)); got != GateChoice {
		t.Fatalf("operator must still get the choice, got %v", got)
	}

	gate.HasResource = func(st State) bool { return true }
	if got := gate.Decide(readyState(RoleCitizen)); got != GateCitizen {
		t.Fatalf("present resource must route to the citizen view, got %v", got)
	}
}

func TestPanelFor_ExhaustiveOverRoles(t *testing.T) {
	seen := map[string]Role{}
	for _, r := range AllRoles {
		p := PanelFor(r)
		if p.Path == "" || p.Slug == "" {
			t.Fatalf("role %q resolved to an empty panel", r)
		}
		if prev, dup := seen[p.Slug]; dup {
			t.Fatalf("roles %q and %q share panel %q", prev, r, p.Slug)
		}
		seen[p.Slug] = r
	}
}
