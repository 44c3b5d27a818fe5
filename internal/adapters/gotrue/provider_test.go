package gotrue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/civisim/civisim-api/internal/errors"
	"github.com/civisim/civisim-api/internal/ports"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, AnonKey: "anon-key", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return client, srv
}

func TestNewClient_ValidationErrors(t *testing.T) {
	_, err := NewClient(Config{AnonKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")

	_, err = NewClient(Config{BaseURL: "http://id.example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anon key")
}

func TestClient_SignIn_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
			"user": map[string]any{
				"id":           "user-1",
				"email":        "ana@example.com",
				"app_metadata": map[string]any{"roles": []string{"citizen"}},
			},
		})
	})

	res, err := client.SignIn(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", res.Identity.UserID)
	assert.Equal(t, "at-1", res.Credential.AccessToken)
	assert.Equal(t, "rt-1", res.Credential.RefreshToken)
	assert.NotNil(t, res.Identity.Metadata["roles"])
}

func TestClient_SignIn_BadCredentials(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid login credentials",
		})
	})

	_, err := client.SignIn(context.Background(), "ana@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthenticated(err), "expected unauthenticated, got %v", err)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestClient_SignIn_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client, err := NewClient(Config{BaseURL: srv.URL, AnonKey: "k"})
	require.NoError(t, err)
	srv.Close()

	_, err = client.SignIn(context.Background(), "ana@example.com", "secret")
	require.Error(t, err)
	assert.True(t, apperrors.IsProvider(err), "expected provider error, got %v", err)
}

func TestClient_SignOut_RefreshTokenNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"msg": "Invalid Refresh Token: Refresh Token Not Found",
		})
	})

	err := client.SignOut(context.Background(), "stale-rt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrRefreshTokenNotFound)
}

func TestClient_SignOut_StructuredCode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error_code": "refresh_token_not_found",
		})
	})

	err := client.SignOut(context.Background(), "stale-rt")
	assert.ErrorIs(t, err, ports.ErrRefreshTokenNotFound)
}

func TestClient_SignOut_OtherErrorNotBenign(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"msg": "backend exploded"})
	})

	err := client.SignOut(context.Background(), "rt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrRefreshTokenNotFound)
}

func TestClient_SignUp_SendsMetadata(t *testing.T) {
	var got map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signup", r.URL.Path)
		assert.Equal(t, "https://app.example.com/bem-vindo", r.URL.Query().Get("redirect_to"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := client.SignUp(context.Background(), ports.SignUpInput{
		Email:       "novo@example.com",
		Password:    "secret",
		Data:        map[string]any{"username": "novo"},
		RedirectURL: "https://app.example.com/bem-vindo",
	})
	require.NoError(t, err)
	data, ok := got["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "novo", data["username"])
}

func TestClient_ResetAndUpdatePassword(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/recover":
			assert.Equal(t, http.MethodPost, r.Method)
		case "/user":
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.ResetPassword(context.Background(), "ana@example.com", ""))
	require.NoError(t, client.UpdatePassword(context.Background(), "at-1", "new-secret"))

	assert.Error(t, client.ResetPassword(context.Background(), "", ""))
	assert.Error(t, client.UpdatePassword(context.Background(), "", "new"))
	assert.Error(t, client.UpdatePassword(context.Background(), "at-1", ""))
}
