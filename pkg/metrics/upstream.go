package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics records fetch and submit outcomes against the ordering backend.
type UpstreamMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	submits  *prometheus.CounterVec
}

// NewUpstreamMetrics registers the upstream metrics on the provided registerer.
func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Duration of upstream backend requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"resource"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_request_success",
		Help: "Successful upstream backend requests.",
	}, []string{"resource"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_request_failure",
		Help: "Failed upstream backend requests.",
	}, []string{"resource"})
	submits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submit_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, success, failure, submits)
	return &UpstreamMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		submits:  submits,
	}
}

// ObserveDuration records the duration for the named resource.
func (u *UpstreamMetrics) ObserveDuration(resource string, duration time.Duration) {
	if u == nil || u.duration == nil {
		return
	}
	u.duration.WithLabelValues(normalizeLabel(resource)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named resource.
func (u *UpstreamMetrics) IncSuccess(resource string) {
	if u == nil || u.success == nil {
		return
	}
	u.success.WithLabelValues(normalizeLabel(resource)).Inc()
}

// IncFailure increments the failure counter for the named resource.
func (u *UpstreamMetrics) IncFailure(resource string) {
	if u == nil || u.failure == nil {
		return
	}
	u.failure.WithLabelValues(normalizeLabel(resource)).Inc()
}

// IncSubmit counts one order submission with the given outcome label.
func (u *UpstreamMetrics) IncSubmit(outcome string) {
	if u == nil || u.submits == nil {
		return
	}
	u.submits.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
