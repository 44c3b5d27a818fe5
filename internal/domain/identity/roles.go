package identity

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Role classifies a profile's authority level. Keep string form for easy
// persistence and cookies. The set of valid values is closed; ParseRole
// rejects anything else.
type Role string

const (
	RoleCitizen       Role = "citizen"
	RoleAdmin         Role = "admin"
	RolePresidente    Role = "presidente"
	RoleMinistro      Role = "ministro"
	RoleDeputado      Role = "deputado"
	RoleSenador       Role = "senador"
	RoleJuiz          Role = "juiz"
	RolePolice        Role = "police"
	RoleAGIES         Role = "agies"
	RoleForcasArmadas Role = "forcas-armadas"
)

// AllRoles lists every valid role, ordered by authority precedence
// (highest first). Dashboard resolution picks the first match.
var AllRoles = []Role{
	RoleAdmin,
	RolePresidente,
	RoleMinistro,
	RoleSenador,
	RoleDeputado,
	RoleJuiz,
	RolePolice,
	RoleAGIES,
	RoleForcasArmadas,
	RoleCitizen,
}

// ParseRole parses a role tag, case-insensitively.
func ParseRole(s string) (Role, error) {
	tag := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, r := range AllRoles {
		if tag == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// RoleSet is a normalized set of role tags. Upstream data may carry a role as
// a scalar or an array; the profile boundary normalizes both into a RoleSet so
// no caller ever handles the dual representation.
type RoleSet struct {
	roles map[Role]struct{}
}

// NewRoleSet builds a set from the given roles. Unknown tags are not filtered
// here; use ParseRoles for untrusted input.
func NewRoleSet(roles ...Role) RoleSet {
	s := RoleSet{roles: make(map[Role]struct{}, len(roles))}
	for _, r := range roles {
		s.roles[r] = struct{}{}
	}
	return s
}

// ParseRoles normalizes a scalar-or-array of raw role tags into a RoleSet.
// Unknown tags fail the whole parse so a bad row is caught at the boundary.
func ParseRoles(raw []string) (RoleSet, error) {
	roles := make([]Role, 0, len(raw))
	for _, s := range raw {
		r, err := ParseRole(s)
		if err != nil {
			return RoleSet{}, err
		}
		roles = append(roles, r)
	}
	return NewRoleSet(roles...), nil
}

// Has reports membership.
func (s RoleSet) Has(r Role) bool {
	_, ok := s.roles[r]
	return ok
}

// Intersects reports whether the two sets share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	for r := range s.roles {
		if other.Has(r) {
			return true
		}
	}
	return false
}

// Union returns a new set containing the roles of both sets.
func (s RoleSet) Union(other RoleSet) RoleSet {
	out := NewRoleSet(s.Values()...)
	for r := range other.roles {
		out.roles[r] = struct{}{}
	}
	return out
}

// IsEmpty reports whether the set has no roles.
func (s RoleSet) IsEmpty() bool { return len(s.roles) == 0 }

// Len returns the number of roles in the set.
func (s RoleSet) Len() int { return len(s.roles) }

// Values returns the roles in authority-precedence order.
func (s RoleSet) Values() []Role {
	out := make([]Role, 0, len(s.roles))
	for _, r := range AllRoles {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Primary returns the highest-precedence role in the set, or RoleCitizen for
// an empty set.
func (s RoleSet) Primary() Role {
	for _, r := range AllRoles {
		if s.Has(r) {
			return r
		}
	}
	return RoleCitizen
}

// Strings returns the role tags sorted alphabetically, for persistence.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s.roles))
	for r := range s.roles {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted string array.
func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON accepts either a single string or an array of strings,
// matching the scalar-or-array shape stored upstream.
func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		var one string
		if serr := json.Unmarshal(data, &one); serr != nil {
			return fmt.Errorf("role set must be a string or string array: %w", err)
		}
		many = []string{one}
	}
	parsed, err := ParseRoles(many)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
