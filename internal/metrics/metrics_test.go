package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTP("GET", "/x", 200, time.Millisecond)
		m.RecordTransition("accept", "ok")
		m.RecordConflictRetry("accept")
		m.RecordCacheLookup(true)
		m.RecordRecommendations(3)
		m.RecordRateLimited()
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.RecordTransition("accept", "ok")
	m.RecordTransition("accept", "ok")
	m.RecordTransition("accept", "invalid_state_transition")
	m.RecordCacheLookup(false)
	m.RecordRateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("accept", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("accept", "invalid_state_transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordHTTP("GET", "/neighbor-api/health", http.StatusOK, 2*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "neighbor_http_requests_total"))
}
