package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/items/{id}", "418")))
}

func TestObserveGrant(t *testing.T) {
	m := New()
	m.ObserveGrant("users", "password", nil, 10*time.Millisecond)
	m.ObserveGrant("users", "password", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.grants.WithLabelValues("users", "password", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.grants.WithLabelValues("users", "password", "error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGrant("users", "password", nil, time.Millisecond)
		m.ObserveLogin("user", nil)
		m.ObserveRegistration("user", nil)
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveLogin("manager", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `auth_logins_total{principal="manager",result="ok"} 1`)
}
