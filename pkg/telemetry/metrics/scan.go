package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics tracks scan outcomes and history writes.
type ScanMetrics struct {
	scansTotal    *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	historyWrites *prometheus.CounterVec
}

// NewScanMetrics creates and registers scan metrics.
func NewScanMetrics(namespace string, buckets []float64, registry prometheus.Registerer) *ScanMetrics {
	sm := &ScanMetrics{
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Total number of scans by status",
			},
			[]string{"status"},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "End-to-end scan duration in seconds",
				Buckets:   buckets,
			},
		),
		historyWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_writes_total",
				Help:      "Total number of scan history writes by status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(sm.scansTotal, sm.scanDuration, sm.historyWrites)
	return sm
}

// RecordScan records one scan.
func (sm *ScanMetrics) RecordScan(status string, duration time.Duration) {
	sm.scansTotal.WithLabelValues(status).Inc()
	sm.scanDuration.Observe(duration.Seconds())
}

// RecordHistoryWrite records one history write.
func (sm *ScanMetrics) RecordHistoryWrite(status string) {
	sm.historyWrites.WithLabelValues(status).Inc()
}
