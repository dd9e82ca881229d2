package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criteo/code-id-registry/internal/apierrors"
	"github.com/criteo/code-id-registry/internal/auth"
	"github.com/criteo/code-id-registry/internal/models"
	"github.com/criteo/code-id-registry/internal/registry"
	"github.com/criteo/code-id-registry/internal/server/middleware"
	"github.com/criteo/code-id-registry/internal/storage"
)

const testAdmin = "admin"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	router  *chi.Mux
	metrics *MetricsHandler
	service *registry.Service
}

// newTestEnv wires the handlers on a chi router the same way the server does,
// with callers taken from the X-Registry-Caller header
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := newTestLogger()
	store := storage.NewMemoryStorage(logger)
	service := registry.NewService(store, nil, logger)
	_, _, err := service.Instantiate(context.Background(), testAdmin)
	require.NoError(t, err)

	metrics := NewMetricsHandler(logger)
	reg := NewRegistrationHandler(service, metrics, logger)
	query := NewQueryHandler(service, metrics, logger)
	admin := NewAdminHandler(service, metrics, logger)
	requireAuth := middleware.RequireAuth(auth.NewTrustingNoAuth(), metrics.IncrementAuthFailures)

	r := chi.NewRouter()
	r.Get("/health", NewHealthHandler(service, logger).GetHealth)
	r.Get("/metrics", metrics.GetMetrics)
	r.Get("/info", admin.GetInfo)
	r.Get("/admin", admin.GetAdmin)
	r.With(requireAuth).Put("/admin", admin.UpdateAdmin)
	r.With(requireAuth).Post("/registrations", reg.Register)
	r.With(requireAuth).Delete("/registrations", reg.Unregister)
	r.Get("/registrations/{name}/{chain_id}", query.ListRegistrations)
	r.Get("/registrations/{name}/{chain_id}/latest", query.GetLatest)
	r.Get("/registrations/{name}/{chain_id}/{version}", query.GetVersion)
	r.Get("/code-ids/{chain_id}/{code_id}", query.GetCodeID)

	return &testEnv{router: r, metrics: metrics, service: service}
}

func (e *testEnv) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != "" {
		req.Header.Set(auth.CallerHeader, caller)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierrors.ErrorDetail {
	t.Helper()
	var resp apierrors.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Error
}

func decodeRegistration(t *testing.T, rr *httptest.ResponseRecorder) *models.Registration {
	t.Helper()
	var resp models.GetRegistrationResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Registration
}

func registerBody(name, version, chain string, codeID uint64) models.RegisterRequest {
	return models.RegisterRequest{ContractName: name, Version: version, ChainID: chain, CodeID: codeID, Checksum: "abc"}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("cw20", "1.0.0", "juno-1", 4))
	require.Equal(t, http.StatusCreated, rr.Code)
	reg := decodeRegistration(t, rr)
	assert.Equal(t, uint64(4), reg.CodeID)
	assert.Equal(t, "cw20", reg.ContractName)

	rr = env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("cw721", "1.0.0", "juno-1", 4))
	require.Equal(t, http.StatusConflict, rr.Code)
	detail := decodeError(t, rr)
	assert.Equal(t, apierrors.ErrCodeCodeIDAlreadyRegistered, detail.Code)
	assert.Equal(t, "code ID 4 has already been registered on chain juno-1", detail.Message)

	rr = env.do(t, http.MethodPost, "/registrations", "mallory", registerBody("cw721", "1.0.0", "juno-1", 5))
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierrors.ErrCodeUnauthorized, decodeError(t, rr).Code)
}

func TestRegister_BadJSON(t *testing.T) {
	env := newTestEnv(t)

	for name, body := range map[string]string{
		"malformed":     `{"contract_name":`,
		"unknown field": `{"contract_name":"a","bogus":1}`,
		"negative id":   `{"contract_name":"a","code_id":-1}`,
		"trailing data": `{"contract_name":"a"} {}`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/registrations", testAdmin, body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, apierrors.ErrCodeValidationError, decodeError(t, rr).Code)
		})
	}
}

func TestUnregister(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("cw20", "1.0.0", "juno-1", 4)).Code)

	wrong := models.UnregisterRequest{ContractName: "cw20", ChainID: "juno-1", CodeID: 9, Version: "1.0.0"}
	rr := env.do(t, http.MethodDelete, "/registrations", testAdmin, wrong)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierrors.ErrCodeRegistrationMismatch, decodeError(t, rr).Code)

	req := models.UnregisterRequest{ContractName: "cw20", ChainID: "juno-1", CodeID: 4, Version: "1.0.0"}
	rr = env.do(t, http.MethodDelete, "/registrations", "mallory", req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodDelete, "/registrations", testAdmin, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	// absent entries are a no-op
	rr = env.do(t, http.MethodDelete, "/registrations", testAdmin, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodGet, "/code-ids/juno-1/4", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestQueries(t *testing.T) {
	env := newTestEnv(t)
	for i, version := range []string{"0.0.1", "0.0.10", "0.0.2"} {
		rr := env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("cw20", version, "juno-1", uint64(i+1)))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	t.Run("list", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/registrations/cw20/juno-1", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp models.ListRegistrationsResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		var versions []string
		for _, r := range resp.Registrations {
			versions = append(versions, r.Version)
		}
		assert.Equal(t, []string{"0.0.1", "0.0.10", "0.0.2"}, versions)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/registrations/none/juno-1", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"registrations":[]}`, rr.Body.String())
	})

	t.Run("latest is lexicographic", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/registrations/cw20/juno-1/latest", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "0.0.2", decodeRegistration(t, rr).Version)
	})

	t.Run("exact version", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/registrations/cw20/juno-1/0.0.10", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, uint64(2), decodeRegistration(t, rr).CodeID)
	})

	t.Run("version query on latest route", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/registrations/cw20/juno-1/latest?version=0.0.1", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "0.0.1", decodeRegistration(t, rr).Version)
	})

	t.Run("missing version", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/registrations/cw20/juno-1/9.9.9", "", nil)
		require.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, apierrors.ErrCodeNotFound, decodeError(t, rr).Code)
	})

	t.Run("escaped path segments", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("org/cw20", "1", "juno-1", 50))
		require.Equal(t, http.StatusCreated, rr.Code)
		rr = env.do(t, http.MethodGet, "/registrations/org%2Fcw20/juno-1/latest", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, uint64(50), decodeRegistration(t, rr).CodeID)
	})

	t.Run("percent signs are part of the name", func(t *testing.T) {
		for name, codeID := range map[string]uint64{"aA": 67, "a%41": 68, "100%": 69} {
			rr := env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody(name, "1", "c", codeID))
			require.Equal(t, http.StatusCreated, rr.Code)
		}
		for name, codeID := range map[string]uint64{"aA": 67, "a%41": 68, "100%": 69} {
			rr := env.do(t, http.MethodGet, "/registrations/"+url.PathEscape(name)+"/c/latest", "", nil)
			require.Equal(t, http.StatusOK, rr.Code, name)
			reg := decodeRegistration(t, rr)
			assert.Equal(t, name, reg.ContractName)
			assert.Equal(t, codeID, reg.CodeID)

			rr = env.do(t, http.MethodGet, "/registrations/"+url.PathEscape(name)+"/c", "", nil)
			require.Equal(t, http.StatusOK, rr.Code, name)
			var resp models.ListRegistrationsResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			require.Len(t, resp.Registrations, 1)
			assert.Equal(t, name, resp.Registrations[0].ContractName)
		}

		rr := env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("pct", "1", "50%", 1))
		require.Equal(t, http.StatusCreated, rr.Code)
		rr = env.do(t, http.MethodGet, "/code-ids/"+url.PathEscape("50%")+"/1", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "pct", decodeRegistration(t, rr).ContractName)
	})

	t.Run("empty version is addressable", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("blank", "", "juno-1", 70))
		require.Equal(t, http.StatusCreated, rr.Code)
		rr = env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("blank", "2.0.0", "juno-1", 71))
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = env.do(t, http.MethodGet, "/registrations/blank/juno-1/latest?version=", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, uint64(70), decodeRegistration(t, rr).CodeID)

		rr = env.do(t, http.MethodGet, "/registrations/blank/juno-1/latest", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, uint64(71), decodeRegistration(t, rr).CodeID)
	})

	t.Run("code id", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/code-ids/juno-1/3", "", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "0.0.2", decodeRegistration(t, rr).Version)
	})

	t.Run("invalid code id", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/code-ids/juno-1/abc", "", nil)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, apierrors.ErrCodeValidationError, decodeError(t, rr).Code)
	})
}

func TestAdmin(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/admin", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"admin":"admin"}`, rr.Body.String())

	rr = env.do(t, http.MethodPut, "/admin", "mallory", models.UpdateAdminRequest{Admin: "mallory"})
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierrors.ErrCodeUnauthorizedUpdateAdmin, decodeError(t, rr).Code)

	rr = env.do(t, http.MethodPut, "/admin", testAdmin, models.UpdateAdminRequest{Admin: "Not Valid!"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierrors.ErrCodeInvalidIdentity, decodeError(t, rr).Code)

	rr = env.do(t, http.MethodPut, "/admin", testAdmin, models.UpdateAdminRequest{Admin: "bob"})
	require.Equal(t, http.StatusOK, rr.Code)

	// the old admin has lost its rights
	rr = env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("cw20", "1", "juno-1", 1))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = env.do(t, http.MethodPost, "/registrations", "bob", registerBody("cw20", "1", "juno-1", 1))
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/info", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"contract":"code-id-registry","version":"dev"}`, rr.Body.String())

	logger := newTestLogger()
	empty := NewAdminHandler(registry.NewService(storage.NewMemoryStorage(logger), nil, logger), NewMetricsHandler(logger), logger)
	rec := httptest.NewRecorder()
	empty.GetInfo(rec, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return errors.New("bucket unreachable")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy","checks":{"storage":{"status":"healthy"}}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	NewHealthHandler(failingPinger{}, newTestLogger()).GetHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "bucket unreachable", resp.Checks["storage"].Message)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("cw20", "1", "juno-1", 1))
	env.do(t, http.MethodPost, "/registrations", testAdmin, registerBody("cw20", "2", "juno-1", 1))
	env.do(t, http.MethodGet, "/code-ids/juno-1/x", "", nil)
	env.do(t, http.MethodGet, "/registrations/cw20/juno-1/latest", "", nil)
	env.metrics.ObserveStatus(http.StatusCreated)
	env.metrics.ObserveStatus(http.StatusConflict)

	rr := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp MetricsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))

	assert.Equal(t, uint64(2), resp.Total)
	assert.Equal(t, uint64(2), resp.ByType["register_code_id"])
	assert.Equal(t, uint64(1), resp.ByType["code_id_reads"])
	assert.Equal(t, uint64(1), resp.ByType["registration_reads"])
	assert.Equal(t, uint64(1), resp.ByStatus["conflicts"])
	assert.Equal(t, uint64(1), resp.ByStatus["validation_errors"])
	assert.Equal(t, uint64(1), resp.ByStatus["2xx"])
	assert.Equal(t, uint64(1), resp.ByStatus["4xx"])
}
