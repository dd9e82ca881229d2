package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criteo/code-id-registry/internal/auth"
	"github.com/criteo/code-id-registry/internal/config"
	"github.com/criteo/code-id-registry/internal/models"
	"github.com/criteo/code-id-registry/internal/registry"
	"github.com/criteo/code-id-registry/internal/storage"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 8080, RateLimit: 1000},
		Storage: config.StorageConfig{URI: "memory://"},
		Auth:    config.AuthConfig{Type: config.AuthBasic},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

// newTestServer serves a registry whose credentials file holds admin:pw and bob:pw
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := newTestLogger()
	cfg := testConfig()

	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	creds, err := auth.MarshalCredentials(
		auth.Credential{Identity: "admin", PasswordHash: hash},
		auth.Credential{Identity: "bob", PasswordHash: hash},
	)
	require.NoError(t, err)
	cfg.Auth.UsersFile = filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(cfg.Auth.UsersFile, creds, 0600))

	authenticator, err := NewAuthenticator(cfg, logger)
	require.NoError(t, err)

	store := storage.NewMemoryStorage(logger)
	service := registry.NewService(store, nil, logger)
	require.NoError(t, Bootstrap(context.Background(), service, "admin", logger))

	ts := httptest.NewServer(NewServer(cfg, logger, store, service, authenticator).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path, user string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if user != "" {
		req.SetBasicAuth(user, "pw")
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_EndToEnd(t *testing.T) {
	ts := newTestServer(t)

	reg := models.RegisterRequest{ContractName: "cw20-base", Version: "1.0.0", ChainID: "juno-1", CodeID: 12, Checksum: "deadbeef"}

	// writes need credentials
	resp := call(t, ts, http.MethodPost, "/api/v1/registrations", "", reg)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// authenticated but not admin
	resp = call(t, ts, http.MethodPost, "/api/v1/registrations", "bob", reg)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = call(t, ts, http.MethodPost, "/api/v1/registrations", "admin", reg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// reads are public
	resp = call(t, ts, http.MethodGet, "/api/v1/code-ids/juno-1/12", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var got models.GetRegistrationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, models.NewRegistration(reg), got.Registration)

	resp = call(t, ts, http.MethodGet, "/api/v1/registrations/cw20-base/juno-1/latest", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, ts, http.MethodGet, "/api/v1/registrations/cw20-base/juno-1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list models.ListRegistrationsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list.Registrations, 1)

	resp = call(t, ts, http.MethodPut, "/api/v1/admin", "admin", models.UpdateAdminRequest{Admin: "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	unreg := models.UnregisterRequest{ContractName: "cw20-base", ChainID: "juno-1", CodeID: 12, Version: "1.0.0"}
	resp = call(t, ts, http.MethodDelete, "/api/v1/registrations", "admin", unreg)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = call(t, ts, http.MethodDelete, "/api/v1/registrations", "bob", unreg)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = call(t, ts, http.MethodGet, "/api/v1/code-ids/juno-1/12", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_WhoamiHealthMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp := call(t, ts, http.MethodGet, "/api/v1/whoami", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = call(t, ts, http.MethodGet, "/api/v1/whoami", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var who map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&who))
	assert.Equal(t, "bob", who["username"])

	resp = call(t, ts, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, ts, http.MethodGet, "/api/v1/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var metrics struct {
		Total    uint64            `json:"total_requests"`
		ByStatus map[string]uint64 `json:"by_status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&metrics))
	assert.Equal(t, uint64(3), metrics.Total)
	assert.Equal(t, uint64(1), metrics.ByStatus["auth_failures"])
}

func TestServer_CORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	resp := call(t, ts, http.MethodOptions, "/api/v1/registrations/cw20/juno-1", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "GET, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	service := registry.NewService(storage.NewMemoryStorage(logger), nil, logger)

	// nothing configured, nothing stored
	assert.ErrorIs(t, Bootstrap(ctx, service, "", logger), ErrAdminRequired)
	_, err := service.Admin(ctx)
	assert.ErrorIs(t, err, registry.ErrNotInstantiated)

	require.NoError(t, Bootstrap(ctx, service, "alice", logger))
	admin, err := service.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", admin)

	// the stored admin wins over a different configured one
	require.NoError(t, Bootstrap(ctx, service, "carol", logger))
	admin, err = service.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", admin)

	assert.ErrorIs(t, Bootstrap(ctx, service, "Not Valid", logger), registry.ErrInvalidIdentity)

	// once instantiated, restarts need no configured admin
	require.NoError(t, Bootstrap(ctx, service, "", logger))
}

func TestNewAuthenticator(t *testing.T) {
	logger := newTestLogger()
	cfg := testConfig()

	cfg.Auth.Type = config.AuthNone
	a, err := NewAuthenticator(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &auth.NoAuth{}, a)

	cfg.Auth.Type = config.AuthHeader
	a, err = NewAuthenticator(cfg, logger)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(auth.CallerHeader, "alice")
	user, err := a.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	cfg.Auth.Type = config.AuthBasic
	cfg.Auth.UsersFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewAuthenticator(cfg, logger)
	assert.Error(t, err)

	cfg.Auth.Type = "jwt"
	_, err = NewAuthenticator(cfg, logger)
	assert.Error(t, err)
}
