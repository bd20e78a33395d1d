package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/mailguard/pkg/config"
)

// maxAnalyzerLabels bounds the distinct analyzer label values.
const maxAnalyzerLabels = 200

// overflowLabel replaces label values past the cardinality limit.
const overflowLabel = "other"

// Collector records mailguard metrics into its own registry.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	scans     *ScanMetrics
	analyzers *AnalyzerMetrics
	http      *HTTPMetrics

	analyzerNames *CardinalityLimiter
}

// NewCollector creates a collector. A nil registry gets a fresh one.
// Empty namespace and buckets take the config defaults.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}
	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = config.DefaultDurationBuckets
	}

	return &Collector{
		enabled:       cfg.Enabled,
		registry:      registry,
		scans:         NewScanMetrics(namespace, buckets, registry),
		analyzers:     NewAnalyzerMetrics(namespace, buckets, registry),
		http:          NewHTTPMetrics(namespace, buckets, registry),
		analyzerNames: NewCardinalityLimiter(maxAnalyzerLabels),
	}
}

func (c *Collector) active() bool {
	return c != nil && c.enabled
}

func (c *Collector) analyzerLabel(name string) string {
	if c.analyzerNames.Allow(name) {
		return name
	}
	return overflowLabel
}

// RecordAnalyzerCall records one analyzer invocation.
func (c *Collector) RecordAnalyzerCall(analyzer, outcome string, duration time.Duration) {
	if !c.active() {
		return
	}
	c.analyzers.RecordCall(c.analyzerLabel(analyzer), outcome, duration)
}

// RecordDecision records the decision of a produced result.
func (c *Collector) RecordDecision(analyzer, decision string) {
	if !c.active() {
		return
	}
	c.analyzers.RecordDecision(c.analyzerLabel(analyzer), decision)
}

// SetRegisteredAnalyzers sets the registered analyzer gauge.
func (c *Collector) SetRegisteredAnalyzers(n int) {
	if !c.active() {
		return
	}
	c.analyzers.SetRegistered(n)
}

// RecordScan records a completed or rejected scan.
func (c *Collector) RecordScan(status string, duration time.Duration) {
	if !c.active() {
		return
	}
	c.scans.RecordScan(status, duration)
}

// RecordHistoryWrite records a history save attempt.
func (c *Collector) RecordHistoryWrite(status string) {
	if !c.active() {
		return
	}
	c.scans.RecordHistoryWrite(status)
}

// RecordHTTPRequest records a served HTTP request. path is the route
// pattern, never the raw URL.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if !c.active() {
		return
	}
	c.http.RecordRequest(method, path, status, duration)
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// CardinalityLimiter caps the number of distinct values admitted for a
// label.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality
// distinct values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is already admitted or can still be.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of admitted values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
