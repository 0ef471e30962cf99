package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CustodyMetrics records custody transition outcomes across the API.
type CustodyMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewCustodyMetrics registers the custody metrics on the provided registerer.
func NewCustodyMetrics(reg prometheus.Registerer) *CustodyMetrics {
	if reg == nil {
		return &CustodyMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_transitions_total",
		Help: "Completed order transitions by operation.",
	}, []string{"operation"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_transition_rejections_total",
		Help: "Rejected order transitions by operation and error code.",
	}, []string{"operation", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "custody_transition_duration_seconds",
		Help:    "Duration of order transitions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(transitions, rejections, duration)
	return &CustodyMetrics{
		transitions: transitions,
		rejections:  rejections,
		duration:    duration,
	}
}

// IncTransition increments the completed transition counter for the named operation.
func (c *CustodyMetrics) IncTransition(operation string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncRejection increments the rejection counter for the named operation.
func (c *CustodyMetrics) IncRejection(operation, code string) {
	if c == nil || c.rejections == nil {
		return
	}
	c.rejections.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

// ObserveDuration records the duration of the named operation.
func (c *CustodyMetrics) ObserveDuration(operation string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
