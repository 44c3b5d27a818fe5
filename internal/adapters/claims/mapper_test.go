package claims

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

func TestNewMapper_InvalidPath(t *testing.T) {
	_, err := NewMapper("roles[")
	require.Error(t, err)
}

func TestMapper_ScalarAndArrayClaims(t *testing.T) {
	mapper, err := NewMapper("roles")
	require.NoError(t, err)

	scalar, err := mapper.Map(map[string]any{"roles": "police"})
	require.NoError(t, err)
	assert.True(t, scalar.Has(identity.RolePolice))
	assert.True(t, scalar.Has(identity.RoleCitizen))

	array, err := mapper.Map(map[string]any{"roles": []any{"police", "juiz"}})
	require.NoError(t, err)
	assert.True(t, array.Has(identity.RolePolice))
	assert.True(t, array.Has(identity.RoleJuiz))
}

func TestMapper_NestedPath(t *testing.T) {
	mapper, err := NewMapper("app.roles")
	require.NoError(t, err)

	set, err := mapper.Map(map[string]any{
		"app": map[string]any{"roles": []any{"admin"}},
	})
	require.NoError(t, err)
	assert.True(t, set.Has(identity.RoleAdmin))
}

func TestMapper_MissingOrUnknownTagsDefaultToCitizen(t *testing.T) {
	mapper, err := NewMapper("")
	require.NoError(t, err)

	missing, err := mapper.Map(map[string]any{"other": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"citizen"}, missing.Strings())

	unknown, err := mapper.Map(map[string]any{"roles": []any{"mayor"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"citizen"}, unknown.Strings())

	nilMeta, err := mapper.Map(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"citizen"}, nilMeta.Strings())
}

func TestMapper_RejectsNonStringClaims(t *testing.T) {
	mapper, err := NewMapper("roles")
	require.NoError(t, err)

	_, err = mapper.Map(map[string]any{"roles": []any{1, 2}})
	assert.Error(t, err)

	_, err = mapper.Map(map[string]any{"roles": 42})
	assert.Error(t, err)
}
