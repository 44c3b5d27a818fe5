package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civisim/civisim-api/internal/ports"
)

// discoveryServer serves a minimal OIDC discovery document pointing at itself.
func discoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "openid-configuration") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/auth",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
			"jwks_uri":               srv.URL + "/jwks",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func validConfig(issuer string) ProviderConfig {
	return ProviderConfig{
		ClientID:     "civisim-staff",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/sso/callback",
		Scope:        "openid email roles",
		DiscoveryURL: issuer,
	}
}

func TestNewProvider_Success(t *testing.T) {
	srv := discoveryServer(t)

	p, err := NewProvider(validConfig(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/auth", p.config.Endpoint.AuthURL)
	assert.Equal(t, srv.URL+"/token", p.config.Endpoint.TokenURL)
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProviderConfig)
		errMsg string
	}{
		{"missing client ID", func(c *ProviderConfig) { c.ClientID = "" }, "client ID is required"},
		{"missing client secret", func(c *ProviderConfig) { c.ClientSecret = "" }, "client secret is required"},
		{"missing redirect URL", func(c *ProviderConfig) { c.RedirectURL = "" }, "redirect URL is required"},
		{"missing discovery URL", func(c *ProviderConfig) { c.DiscoveryURL = "" }, "discovery URL is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig("http://example.invalid")
			tt.mutate(&cfg)
			_, err := NewProvider(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProvider_Begin(t *testing.T) {
	srv := discoveryServer(t)
	p, err := NewProvider(validConfig(srv.URL))
	require.NoError(t, err)

	authURL, state, nonce, err := p.Begin(context.Background(), ports.SSOBeginInput{
		RedirectURL: "http://localhost:8080/auth/sso/callback",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, state)
	assert.NotEmpty(t, nonce)
	assert.NotEqual(t, state, nonce)
	assert.Contains(t, authURL, srv.URL+"/auth")
	assert.Contains(t, authURL, "nonce="+nonce)
	assert.Contains(t, authURL, "state="+state)

	_, _, _, err = p.Begin(context.Background(), ports.SSOBeginInput{})
	assert.Error(t, err)
}

func TestProvider_Exchange_InputValidation(t *testing.T) {
	srv := discoveryServer(t)
	p, err := NewProvider(validConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Exchange(context.Background(), ports.SSOExchangeInput{State: "s", Nonce: "n"})
	assert.ErrorContains(t, err, "authorization code is required")

	_, err = p.Exchange(context.Background(), ports.SSOExchangeInput{Code: "c", Nonce: "n"})
	assert.ErrorContains(t, err, "state is required")

	_, err = p.Exchange(context.Background(), ports.SSOExchangeInput{Code: "c", State: "s"})
	assert.ErrorContains(t, err, "nonce is required")
}

func TestGenerateRandomString(t *testing.T) {
	a, err := generateRandomString(32)
	require.NoError(t, err)
	b, err := generateRandomString(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "=")
}
