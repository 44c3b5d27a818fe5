package identity

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Police ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r != RolePolice {
		t.Fatalf("expected police, got %q", r)
	}
	if _, err := ParseRole("mayor"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestRoleSet_Intersects(t *testing.T) {
	citizenPolice := NewRoleSet(RoleCitizen, RolePolice)
	if !citizenPolice.Intersects(NewRoleSet(RolePolice)) {
		t.Fatalf("expected intersection on police")
	}
	if citizenPolice.Intersects(NewRoleSet(RoleAdmin, RoleJuiz)) {
		t.Fatalf("did not expect intersection")
	}
	if (RoleSet{}).Intersects(citizenPolice) {
		t.Fatalf("empty set must not intersect")
	}
}

func TestRoleSet_Primary(t *testing.T) {
	s := NewRoleSet(RoleCitizen, RoleDeputado, RoleMinistro)
	if got := s.Primary(); got != RoleMinistro {
		t.Fatalf("expected ministro, got %q", got)
	}
	if got := (RoleSet{}).Primary(); got != RoleCitizen {
		t.Fatalf("empty set should default to citizen, got %q", got)
	}
}

func TestRoleSet_UnmarshalJSON_ScalarOrArray(t *testing.T) {
	var fromScalar RoleSet
	if err := json.Unmarshal([]byte(`"citizen"`), &fromScalar); err != nil {
		t.Fatalf("scalar: %v", err)
	}
	var fromArray RoleSet
	if err := json.Unmarshal([]byte(`["citizen"]`), &fromArray); err != nil {
		t.Fatalf("array: %v", err)
	}
	if !reflect.DeepEqual(fromScalar.Strings(), fromArray.Strings()) {
		t.Fatalf("scalar and array forms must normalize identically")
	}

	var bad RoleSet
	if err := json.Unmarshal([]byte(`["citizen","mayor"]`), &bad); err == nil {
		t.Fatalf("expected unknown tag to fail the parse")
	}
}

func TestParseRoles_Normalizes(t *testing.T) {
	s, err := ParseRoles([]string{"Citizen", "POLICE"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"citizen", "police"}
	if !reflect.DeepEqual(s.Strings(), want) {
		t.Fatalf("got %v want %v", s.Strings(), want)
	}
}
