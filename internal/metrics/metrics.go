// Package metrics wires floodcore's Prometheus instrumentation: a tick
// duration histogram, a current risk distribution gauge, and a scout
// cache occupancy gauge, grounded on 99souls-ariadne's direct use of
// prometheus.New* constructors against an owned registry rather than
// the global default one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the orchestrator's instrumentation. A nil *Metrics is
// valid everywhere it's used: every method has a nil-receiver no-op
// path so the core runs unmodified when the embedder passes no registry.
type Metrics struct {
	registry *prometheus.Registry

	tickDuration   *prometheus.HistogramVec
	riskGauge      prometheus.Gauge
	scoutCacheSize prometheus.Gauge
	phaseErrors    *prometheus.CounterVec
}

// New builds a Metrics bound to a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "floodcore",
			Name:      "tick_phase_duration_seconds",
			Help:      "Duration of each orchestrator tick phase.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		riskGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floodcore",
			Name:      "edge_mean_risk_score",
			Help:      "Mean risk_score across all graph edges after the most recent fusion pass.",
		}),
		scoutCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floodcore",
			Name:      "scout_cache_size",
			Help:      "Number of scout reports currently held in the bounded ring buffer.",
		}),
		phaseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodcore",
			Name:      "tick_phase_errors_total",
			Help:      "Count of recovered per-phase panics/errors, by phase.",
		}, []string{"phase"}),
	}

	reg.MustRegister(m.tickDuration, m.riskGauge, m.scoutCacheSize, m.phaseErrors)
	return m
}

// Handler exposes the registry over HTTP for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTickPhase records a phase's wall-clock duration in seconds.
func (m *Metrics) ObserveTickPhase(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.tickDuration.WithLabelValues(phase).Observe(seconds)
}

// SetMeanRisk records the mean edge risk_score after a fusion pass.
func (m *Metrics) SetMeanRisk(mean float64) {
	if m == nil {
		return
	}
	m.riskGauge.Set(mean)
}

// SetScoutCacheSize records the scout cache's current occupancy.
func (m *Metrics) SetScoutCacheSize(n int) {
	if m == nil {
		return
	}
	m.scoutCacheSize.Set(float64(n))
}

// IncPhaseError records a recovered per-phase error.
func (m *Metrics) IncPhaseError(phase string) {
	if m == nil {
		return
	}
	m.phaseErrors.WithLabelValues(phase).Inc()
}
