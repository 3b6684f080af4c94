package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCountsAlerts(t *testing.T) {
	m := NewMetricsService()
	m.RecordAlert("keyword_detected", true)
	m.RecordAlert("keyword_detected", false)
	m.RecordAlert("keyword_detected", false)

	body := scrape(t, m)
	assert.Contains(t, body, `wellness_alerts_total{created="true",type="keyword_detected"} 1`)
	assert.Contains(t, body, `wellness_alerts_total{created="false",type="keyword_detected"} 2`)
}

func TestMetricsServiceHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)
	m.RecordClassification("keyword_fallback", "high_risk")
	m.RecordCacheOperation(true, time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `wellness_classifications_total{intent="high_risk",method="keyword_fallback"} 1`)
	assert.Contains(t, body, `cache_lookups_total{result="hit"} 1`)
	assert.True(t, strings.Contains(body, "http_requests_total"))
}

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordAlert("mood_pattern", true)
	m.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
