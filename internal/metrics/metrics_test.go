package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCountsOutcomes(t *testing.T) {
	r := NewRegistry()

	r.ObserveView("counted")
	r.ObserveView("counted")
	r.ObserveView("suppressed")
	r.ObserveRotation("rejected")
	r.ObserveLogin("success")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.views.WithLabelValues("counted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.views.WithLabelValues("suppressed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rotations.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.logins.WithLabelValues("success")))
}

func TestHandlerExposesRequestMetrics(t *testing.T) {
	r := NewRegistry()
	r.ObserveRequest(http.MethodGet, "GET /healthz", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `vidshare_http_requests_total{method="GET",route="GET /healthz",status="200"} 1`))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveView("counted")
	r.ObserveRequest(http.MethodGet, "", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
