package bootstrap

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civisim/civisim-api/config"
	"github.com/civisim/civisim-api/internal/domain/identity"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestDefaultServiceGates(t *testing.T) {
	gates := DefaultServiceGates()

	require.Contains(t, gates, "tribunal")
	tribunal := gates["tribunal"]
	assert.True(t, tribunal.Privileged.Has(identity.RoleJuiz))
	assert.NotEmpty(t, tribunal.CitizenPath)
	assert.NotEmpty(t, tribunal.PanelPath)

	// every gate must offer both sides of the dual entry
	for slug, gate := range gates {
		assert.NotEmpty(t, gate.CitizenPath, slug)
		assert.NotEmpty(t, gate.PanelPath, slug)
		assert.False(t, gate.Privileged.IsEmpty(), slug)
	}
}

func TestBuildAuthenticator(t *testing.T) {
	t.Run("mock mode uses the dev authenticator", func(t *testing.T) {
		cfg := &config.AppConfig{}
		cfg.Auth.Mode = config.AuthModeMock
		cfg.Auth.DevAuth = config.DevAuthConfig{
			UserID:   "dev-user",
			Email:    "dev@example.com",
			Password: "dev-password",
			Roles:    []string{"citizen"},
		}

		auth, err := buildAuthenticator(cfg)
		require.NoError(t, err)
		assert.NotNil(t, auth)
	})

	t.Run("password mode requires provider settings", func(t *testing.T) {
		cfg := &config.AppConfig{}
		cfg.Auth.Mode = config.AuthModePassword

		_, err := buildAuthenticator(cfg)
		require.Error(t, err)
	})
}

func TestBuildSSOProvider_DisabledIsNil(t *testing.T) {
	cfg := &config.AppConfig{}
	provider, err := buildSSOProvider(cfg)
	require.NoError(t, err)
	assert.Nil(t, provider)
}
