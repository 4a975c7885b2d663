package accounting

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for statement builds.
type Metrics struct {
	builds     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	unbalanced *prometheus.CounterVec
	cacheHits  *prometheus.CounterVec
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// NewMetrics registers the collectors on registerer, or once on the default
// registerer when nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultMetricsOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_report_builds_total",
		Help: "Statement builds partitioned by report kind and status.",
	}, []string{"kind", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_report_build_duration_seconds",
		Help:    "Duration in seconds of statement builds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	unbalanced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_report_unbalanced_total",
		Help: "Statements whose two sides did not agree within the materiality threshold.",
	}, []string{"kind"})
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_report_cache_total",
		Help: "Statement cache lookups partitioned by result.",
	}, []string{"kind", "result"})
	registerer.MustRegister(builds, duration, unbalanced, cacheHits)
	return &Metrics{builds: builds, duration: duration, unbalanced: unbalanced, cacheHits: cacheHits}
}

func (m *Metrics) observeBuild(kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.builds.WithLabelValues(kind, status).Inc()
	m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeUnbalanced(kind string) {
	if m == nil {
		return
	}
	m.unbalanced.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeCache(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheHits.WithLabelValues(kind, result).Inc()
}
