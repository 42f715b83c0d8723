package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicnet/subnet-launcher/interfaces"
)

func testServer(t *testing.T, handler *Handler) *Server {
	t.Helper()
	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      testLogger(),
		DrainDuration:            10 * time.Millisecond,
		GracefulShutdownDuration: time.Second,
		ReadTimeout:              time.Second,
		WriteTimeout:             time.Second,
	}, handler)
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndDrainCycle(t *testing.T) {
	handler := NewHandler(testIdentity(t, "Rabbit.Miner_0"), interfaces.RoleMiner, nil, nil, "", testLogger())
	srv := testServer(t, handler)
	router := srv.getRouter()

	assert.Equal(t, http.StatusOK, get(t, router, "/livez").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)

	assert.Equal(t, http.StatusOK, get(t, router, "/drain").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/readyz").Code)

	// Liveness is unaffected by draining
	assert.Equal(t, http.StatusOK, get(t, router, "/livez").Code)

	assert.Equal(t, http.StatusOK, get(t, router, "/undrain").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/readyz").Code)
}

func TestMethodRoutes(t *testing.T) {
	t.Setenv(interfaces.EnvRateLimitRPS, "1000")
	t.Setenv(interfaces.EnvRateLimitBurst, "1000")

	provider := providerFunc(func(_ context.Context, _ GenerateRequest) (string, error) {
		return "aW1n", nil
	})
	handler := NewHandler(testIdentity(t, "Rabbit.Miner_0"), interfaces.RoleMiner, provider, nil, "", testLogger())
	srv := testServer(t, handler)
	router := srv.getRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/method/generate", strings.NewReader(`{"prompt":"a red fox"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "aW1n")

	// A miner does not serve scoring
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/method/score", strings.NewReader(`{"image":"aW1n","prompt":"a red fox"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metricsSrv.RequestsTotal.WithLabelValues("generate", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metricsSrv.RequestsTotal.WithLabelValues("score", "404")))
}

func TestRateLimitExceeded(t *testing.T) {
	t.Setenv(interfaces.EnvRateLimitRPS, "1")
	t.Setenv(interfaces.EnvRateLimitBurst, "1")

	provider := providerFunc(func(_ context.Context, _ GenerateRequest) (string, error) {
		return "aW1n", nil
	})
	handler := NewHandler(testIdentity(t, "Rabbit.Miner_0"), interfaces.RoleMiner, provider, nil, "", testLogger())
	srv := testServer(t, handler)
	router := srv.getRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/method/generate", strings.NewReader(`{"prompt":"a red fox"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/method/generate", strings.NewReader(`{"prompt":"a red fox"}`)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Health endpoints are never rate limited
	assert.Equal(t, http.StatusOK, get(t, router, "/livez").Code)
}

func TestRateLimitEnvOverride(t *testing.T) {
	t.Setenv(interfaces.EnvRateLimitRPS, "1000")
	t.Setenv(interfaces.EnvRateLimitBurst, "1000")

	provider := providerFunc(func(_ context.Context, _ GenerateRequest) (string, error) {
		return "aW1n", nil
	})
	handler := NewHandler(testIdentity(t, "Rabbit.Miner_0"), interfaces.RoleMiner, provider, nil, "", testLogger())
	srv := testServer(t, handler)
	router := srv.getRouter()

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/method/generate", strings.NewReader(`{"prompt":"a red fox"}`)))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitIgnoresGarbageEnv(t *testing.T) {
	t.Setenv(interfaces.EnvRateLimitRPS, "not-a-number")
	t.Setenv(interfaces.EnvRateLimitBurst, "-3")

	rps, burst := rateLimitFromEnv()
	assert.Equal(t, float64(DefaultRateLimitRPS), float64(rps))
	assert.Equal(t, DefaultRateLimitBurst, burst)
}
