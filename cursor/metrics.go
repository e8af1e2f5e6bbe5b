package cursor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics times every store operation. Registration is left to the caller
// through Collectors.
type Metrics struct {
	latency  *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notify",
			Subsystem: "cursor",
			Name:      "operation_seconds",
			Help:      "Latency of cursor store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notify",
			Subsystem: "cursor",
			Name:      "operation_failures_total",
			Help:      "Cursor store operations that failed in the backing store.",
		}, []string{"op"}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.latency, m.failures}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}
