package metrics_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marikina-frc/floodcore/internal/metrics"
)

func TestNilMetrics_AllMethodsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveTickPhase("fusion", 0.01)
		m.SetMeanRisk(0.5)
		m.SetScoutCacheSize(3)
		m.IncPhaseError("routing")
	})
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	m := metrics.New()
	m.SetMeanRisk(0.42)
	m.SetScoutCacheSize(7)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "floodcore_edge_mean_risk_score")
	assert.Contains(t, body, "floodcore_scout_cache_size")
}
