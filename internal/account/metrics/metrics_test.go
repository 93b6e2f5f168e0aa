package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SyncFailed("add_to_group")
	m.SyncFailed("add_to_group")
	m.Reconciled("name", "applied")
	m.PendingSyncs(3)

	require.Equal(t, 2.0, testutil.ToFloat64(m.syncFailures.WithLabelValues("add_to_group")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.reconcileTotal.WithLabelValues("name", "applied")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.pendingSyncs))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SyncFailed("x")
	m.Reconciled("x", "y")
	m.ProfileUpdated("ok")
	m.AuthAttempt("ok")

	h := m.Instrument("GET /x")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestInstrumentAndHandler(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	h := m.Instrument("GET /users")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users", nil))

	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "GET /users", "403")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "caveo_http_requests_total"))
}

func TestRegisterTwiceOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.NoError(t, err)
}
