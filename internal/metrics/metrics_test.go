package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.Logins.WithLabelValues("success").Inc()
	m.Logins.WithLabelValues("invalid_credentials").Add(2)
	m.GateDenials.WithLabelValues("forbidden").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues("invalid_credentials")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `carshelf_gate_denials_total{reason="forbidden"} 1`)
}

func TestNew_RegistersRuntimeCollectors(t *testing.T) {
	m := New()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
