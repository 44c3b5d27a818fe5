package devauth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/civisim/civisim-api/internal/errors"
	"github.com/civisim/civisim-api/internal/ports"
)

func TestNewProvider_RequiresCredentials(t *testing.T) {
	_, err := NewProvider(Config{Password: "x"})
	require.Error(t, err)
	_, err = NewProvider(Config{Email: "dev@example.com"})
	require.Error(t, err)
}

func TestProvider_SignIn(t *testing.T) {
	p, err := NewProvider(Config{
		Email:    "dev@example.com",
		Password: "dev",
		Roles:    []string{"admin"},
	})
	require.NoError(t, err)

	res, err := p.SignIn(context.Background(), "dev@example.com", "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev-user", res.Identity.UserID)
	assert.NotEmpty(t, res.Credential.RefreshToken)
	assert.Contains(t, res.Identity.Metadata, "roles")

	_, err = p.SignIn(context.Background(), "dev@example.com", "wrong")
	assert.True(t, apperrors.IsUnauthenticated(err))
}

func TestProvider_SignOut(t *testing.T) {
	p, err := NewProvider(Config{Email: "dev@example.com", Password: "dev"})
	require.NoError(t, err)

	assert.NoError(t, p.SignOut(context.Background(), "dev-refresh-token"))
	assert.ErrorIs(t, p.SignOut(context.Background(), "stale"), ports.ErrRefreshTokenNotFound)
}
