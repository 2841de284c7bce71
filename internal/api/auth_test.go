package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hostsweep/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "k1", Extra: "e1", Name: "full", OwnerID: "owner-1"},
				{Key: "k2", Extra: "e2", Name: "readonly", OwnerID: "owner-2", Permissions: []string{"read:schedule"}},
			},
		},
	}
}

func authProbe(t *testing.T, cfg config.APIConfig, path string, decorate func(*http.Request)) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	auth := NewHTTPAuth(cfg)

	var reached bool
	var client config.APIClientKey
	handler := auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		client, _ = ClientFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	_ = client
	return rec, reached
}

func TestHTTPAuth_MissingHeaders(t *testing.T) {
	rec, reached := authProbe(t, authConfig(), "/api/v1/sync/last", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestHTTPAuth_InvalidKey(t *testing.T) {
	rec, reached := authProbe(t, authConfig(), "/api/v1/sync/last", func(r *http.Request) {
		r.Header.Set("X-API-Key", "nope")
		r.Header.Set("X-API-Extra", "e1")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestHTTPAuth_WrongExtra(t *testing.T) {
	rec, _ := authProbe(t, authConfig(), "/api/v1/sync/last", func(r *http.Request) {
		r.Header.Set("X-API-Key", "k1")
		r.Header.Set("X-API-Extra", "wrong")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPAuth_ValidKeyCarriesClient(t *testing.T) {
	auth := NewHTTPAuth(authConfig())

	var ownerID string
	handler := auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, ok := ClientFromContext(r.Context())
		require.True(t, ok)
		ownerID = client.OwnerID
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/last", nil)
	req.Header.Set("X-API-Key", "k1")
	req.Header.Set("X-API-Extra", "e1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner-1", ownerID)
}

func TestHTTPAuth_PermissionDenied(t *testing.T) {
	// k2 only holds read:schedule, so the sync route is forbidden.
	rec, reached := authProbe(t, authConfig(), "/api/v1/sync", func(r *http.Request) {
		r.Header.Set("X-API-Key", "k2")
		r.Header.Set("X-API-Extra", "e2")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestHTTPAuth_EmptyPermissionsAllowAll(t *testing.T) {
	rec, reached := authProbe(t, authConfig(), "/api/v1/sync", func(r *http.Request) {
		r.Header.Set("X-API-Key", "k1")
		r.Header.Set("X-API-Extra", "e1")
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestHTTPAuth_OpenRoutesSkipAuth(t *testing.T) {
	rec, reached := authProbe(t, authConfig(), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)

	rec, reached = authProbe(t, authConfig(), "/api/v1/cron/sync-all", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached, "cron carries its own bearer check in the handler")
}

func TestHTTPAuth_RateLimit(t *testing.T) {
	cfg := authConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 2}
	auth := NewHTTPAuth(cfg)

	handler := auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/last", nil)
		req.Header.Set("X-API-Key", "k1")
		req.Header.Set("X-API-Extra", "e1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
