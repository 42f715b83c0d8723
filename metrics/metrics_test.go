package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsEndpoint(t *testing.T) {
	srv, err := New("subnet_launcher", "")
	require.NoError(t, err)

	srv.RequestsTotal.WithLabelValues("generate", "200").Inc()

	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `subnet_launcher_http_requests_total{code="200",route="generate"} 1`)
}

func TestDuplicateRegistration(t *testing.T) {
	_, err := New("subnet_launcher", "")
	require.NoError(t, err)

	// A second server gets its own registry, so the fixed collector
	// names never collide across instances.
	_, err = New("subnet_launcher", "")
	require.NoError(t, err)
}
