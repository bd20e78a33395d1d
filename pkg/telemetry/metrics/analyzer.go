package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AnalyzerMetrics tracks per-analyzer calls, latency and decisions.
type AnalyzerMetrics struct {
	callsTotal     *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	decisionsTotal *prometheus.CounterVec
	registered     prometheus.Gauge
}

// NewAnalyzerMetrics creates and registers analyzer metrics.
func NewAnalyzerMetrics(namespace string, buckets []float64, registry prometheus.Registerer) *AnalyzerMetrics {
	am := &AnalyzerMetrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyzer_calls_total",
				Help:      "Total number of analyzer invocations by outcome",
			},
			[]string{"analyzer", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analyzer_duration_seconds",
				Help:      "Analyzer invocation duration in seconds",
				Buckets:   buckets,
			},
			[]string{"analyzer"},
		),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Total number of analyzer decisions",
			},
			[]string{"analyzer", "decision"},
		),
		registered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registered_analyzers",
				Help:      "Number of analyzers currently registered",
			},
		),
	}

	registry.MustRegister(am.callsTotal, am.callDuration, am.decisionsTotal, am.registered)
	return am
}

// RecordCall records one invocation.
func (am *AnalyzerMetrics) RecordCall(analyzer, outcome string, duration time.Duration) {
	am.callsTotal.WithLabelValues(analyzer, outcome).Inc()
	am.callDuration.WithLabelValues(analyzer).Observe(duration.Seconds())
}

// RecordDecision records one decision.
func (am *AnalyzerMetrics) RecordDecision(analyzer, decision string) {
	am.decisionsTotal.WithLabelValues(analyzer, decision).Inc()
}

// SetRegistered sets the registered analyzer count.
func (am *AnalyzerMetrics) SetRegistered(n int) {
	am.registered.Set(float64(n))
}
