package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreIndependentPerInstance(t *testing.T) {
	a, b := New(), New()

	a.OrdersCommitted.WithLabelValues("cash").Inc()
	a.OrdersCommitted.WithLabelValues("cash").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(a.OrdersCommitted.WithLabelValues("cash")))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.OrdersCommitted.WithLabelValues("cash")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Announcements.WithLabelValues("spoken").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `cafepos_announcements_total{outcome="spoken"} 1`))
}

func TestServerServesOnlyMetrics(t *testing.T) {
	m := New()
	m.Announcements.WithLabelValues("failed").Inc()

	srv := m.Server(9102)
	assert.Equal(t, ":9102", srv.Addr)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cafepos_announcements_total{outcome="failed"} 1`)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
