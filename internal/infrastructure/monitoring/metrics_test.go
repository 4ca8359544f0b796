package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOpCountsByStatus(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.ObserveOp("write", 10*time.Millisecond, true)
	m.ObserveOp("write", 10*time.Millisecond, false)
	m.ObserveOp("read", time.Millisecond, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FileOps.WithLabelValues("write", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FileOps.WithLabelValues("write", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FileOps.WithLabelValues("read", "ok")))

	snap := m.GetSnapshot()
	assert.Equal(t, int64(3), snap.TotalFileOps)
	assert.Equal(t, int64(1), snap.FileOpErrors)
}

func TestRecordHTTPRequestUpdatesSnapshot(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.RecordHTTPRequest("GET", "/files/*path", "200", 20*time.Millisecond, 0, 128)
	m.RecordHTTPRequest("GET", "/files/*path", "404", 5*time.Millisecond, 0, 32)

	snap := m.GetSnapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.InDelta(t, 0.025, snap.TotalDuration, 1e-9)
}

func TestSetStoreStateGauges(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.SetStoreState(7, 0.75, 12, 3)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.CacheEntries))
	assert.Equal(t, 0.75, testutil.ToFloat64(m.CacheHitRate))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.TrackedDigests))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SecurityEvents))
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetricsWith(prometheus.NewRegistry())

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/files/*path", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/files/deep/nested.txt", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.RequestsTotal.WithLabelValues("GET", "/files/*path", "200"),
	))
}
