package instrument

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RefreshFinished("success")
	m.RefreshFinished("success")
	m.RefreshFinished("failed")
	m.FeedDropped(3)
	m.FeedDropped(0)
	m.HistoryConflicts(2)
	m.RecommendationServed("cache")
	m.StageDone("parsing", 20*time.Millisecond)
	m.OracleCall(time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.refreshRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshRuns.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.feedDropped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.historyConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recommendationSource.WithLabelValues("cache")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecommendationServed("fallback")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fundsentinel_recommendations_total{source="fallback"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RefreshFinished("success")
		m.StageDone("parsing", time.Second)
		m.FeedDropped(1)
		m.HistoryConflicts(1)
		m.RecommendationServed("cache")
		m.OracleCall(time.Second)
	})
	assert.Nil(t, m.Registry())
}
