package claims

// Package claims derives application role sets from identity-backend metadata.
// The location of the role tags inside the metadata document is deployment
// configuration, expressed as a JMESPath query so backends with different
// claim layouts need no code change.

import (
	"errors"
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/civisim/civisim-api/internal/domain/identity"
	"github.com/civisim/civisim-api/internal/ports"
)

// DefaultRolePath is the metadata query used when none is configured.
const DefaultRolePath = "roles"

var _ ports.RoleMapper = (*Mapper)(nil)

// Mapper extracts role tags from provider metadata with a compiled JMESPath
// expression and normalizes them into a RoleSet.
type Mapper struct {
	expr jmespath.JMESPath
}

// NewMapper compiles the role claim query. An empty path uses DefaultRolePath.
func NewMapper(path string) (*Mapper, error) {
	if path == "" {
		path = DefaultRolePath
	}
	expr, err := jmespath.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("compile role claim path %q: %w", path, err)
	}
	return &Mapper{expr: expr}, nil
}

// Map evaluates the claim query against the metadata. The claim value may be
// a single string or an array of strings; both normalize to a RoleSet at this
// boundary. Unknown tags are skipped rather than failing the login: a profile
// with no recognizable privileged tag is a plain citizen.
func (m *Mapper) Map(metadata map[string]any) (identity.RoleSet, error) {
	if metadata == nil {
		return identity.NewRoleSet(identity.RoleCitizen), nil
	}

	result, err := m.expr.Search(metadata)
	if err != nil {
		return identity.RoleSet{}, fmt.Errorf("evaluate role claim: %w", err)
	}

	tags, err := stringValues(result)
	if err != nil {
		return identity.RoleSet{}, err
	}

	roles := []identity.Role{identity.RoleCitizen}
	for _, tag := range tags {
		r, parseErr := identity.ParseRole(tag)
		if parseErr != nil {
			continue
		}
		roles = append(roles, r)
	}
	return identity.NewRoleSet(roles...), nil
}

// stringValues accepts nil, a string, or an array of strings.
func stringValues(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New("role claim array must contain only strings")
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return val, nil
	default:
		return nil, fmt.Errorf("role claim has unsupported type %T", v)
	}
}
