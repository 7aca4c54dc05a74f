package perftest

import "github.com/prometheus/client_golang/prometheus"

// prometheusRegisterer is the subset of prometheus.Registerer that
// WithMetrics needs, so callers can pass prometheus.DefaultRegisterer, a
// private registry, or nil for "use the default".
type prometheusRegisterer interface {
	Register(prometheus.Collector) error
}

// metricsCollector mirrors eventloop's WithMetrics design (optional,
// attached via options, minimal overhead when absent): a counter of total
// operations observed across all Exec runs and a gauge of the most recent
// run's worst-straggler latency.
type metricsCollector struct {
	totalOps prometheus.Counter
	maxUsec  prometheus.Gauge
}

func newMetricsCollector(reg prometheusRegisterer) *metricsCollector {
	mc := &metricsCollector{
		totalOps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perftest_total_ops",
			Help: "Cumulative sum of NrOps reported by perftest instances.",
		}),
		maxUsec: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "perftest_max_usec",
			Help: "Worst-straggler elapsed microseconds from the most recent perftest run.",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	// Registration failures (e.g. a second Exec with metrics enabled on the
	// same default registry) are non-fatal: the collector still accumulates
	// locally, it just won't be scraped twice under the same name.
	_ = reg.Register(mc.totalOps)
	_ = reg.Register(mc.maxUsec)
	return mc
}

func (mc *metricsCollector) observe(result Result) {
	if mc == nil {
		return
	}
	mc.totalOps.Add(float64(result.TotalOps))
	mc.maxUsec.Set(float64(result.MaxUsec))
}
