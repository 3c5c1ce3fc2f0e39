package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_EngineCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordBuild(true, 4)
	m.RecordBuild(false, 0)
	m.RecordDecode(true, 120)
	m.RecordAccess("get", true)
	m.RecordAccess("get", false)
	m.RecordStoreOperation("save", true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues(statusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodesTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacksTotal.WithLabelValues("get", "dynamic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacksTotal.WithLabelValues("get", "fixed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOpsTotal.WithLabelValues("save", statusSuccess)))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordBuild(true, 1)
		m.RecordDecode(false, 0)
		m.RecordAccess("set", true)
		m.RecordStoreOperation("load", false, 0)
		m.RecordHTTPRequest("GET", "/", 200, 0)
		m.RecordAuthRequest(true)
	})

	called := false
	h := m.InstrumentHandler("GET", "/x", func(w http.ResponseWriter, r *http.Request) { called = true })
	h(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))
	assert.True(t, called)
}

func TestMetrics_InstrumentHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())

	h := m.InstrumentHandler("GET", "/things", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest("GET", "/things", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/things", "418")))
}

func TestMetrics_InstrumentAuthMiddleware(t *testing.T) {
	m := New(prometheus.NewRegistry())

	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != "ok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	h := m.InstrumentAuthMiddleware(deny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-API-Key", "ok")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRequestsTotal.WithLabelValues(statusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRequestsTotal.WithLabelValues(statusSuccess)))
}
