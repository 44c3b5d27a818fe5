package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

func TestCommandsAreRegistered(t *testing.T) {
	cmds := commands()
	for _, name := range []string{"migrate", "db-seed", "grant-role", "revoke-role", "list-profiles", "list-sessions", "clear-sessions"} {
		c, ok := cmds[name]
		require.True(t, ok, name)
		assert.Equal(t, name, c.name)
		assert.NotEmpty(t, c.description)
		assert.NotNil(t, c.run)
	}
}

func TestParseRoleChangeFlags(t *testing.T) {
	opts, err := parseRoleChangeFlags("grant-role", []string{"-user", "u1", "-role", "juiz"})
	require.NoError(t, err)
	assert.Equal(t, "u1", opts.UserID)
	assert.Equal(t, identity.RoleJuiz, opts.Role)

	_, err = parseRoleChangeFlags("grant-role", []string{"-role", "juiz"})
	require.Error(t, err)

	_, err = parseRoleChangeFlags("grant-role", []string{"-user", "u1", "-role", "imperador"})
	require.Error(t, err)
}
