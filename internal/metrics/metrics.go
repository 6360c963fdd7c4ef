// Package metrics records executor and cache activity. A nil Metrics value is
// valid everywhere and costs nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics receives store activity.
type Metrics interface {
	// ObserveRequest records one settled exchange. outcome is "ok" or an
	// error kind such as "ServerError".
	ObserveRequest(method, outcome string, duration time.Duration)
	// SetCacheSize reports the number of cached records after a change.
	SetCacheSize(resource string, n int)
}

// ObserveRequest is a nil-safe helper.
func ObserveRequest(m Metrics, method, outcome string, duration time.Duration) {
	if m != nil {
		m.ObserveRequest(method, outcome, duration)
	}
}

// SetCacheSize is a nil-safe helper.
func SetCacheSize(m Metrics, resource string, n int) {
	if m != nil {
		m.SetCacheSize(resource, n)
	}
}

type promMetrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	cacheSize *prometheus.GaugeVec
}

// NewPrometheus registers the store collectors on reg. Passing a nil
// registerer returns nil, which disables metrics.
func NewPrometheus(reg prometheus.Registerer) Metrics {
	if reg == nil {
		return nil
	}
	return &promMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reststore_requests_total",
				Help: "Total number of REST exchanges by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		durations: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "reststore_request_duration_milliseconds",
				Help: "Duration of REST exchanges in milliseconds",
				Buckets: []float64{
					1,    // 1ms
					5,    // 5ms
					10,   // 10ms
					50,   // 50ms
					100,  // 100ms
					250,  // 250ms
					500,  // 500ms
					1000, // 1s
					5000, // 5s
				},
			},
			[]string{"method"},
		),
		cacheSize: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reststore_cache_records",
				Help: "Number of records held in the local cache",
			},
			[]string{"resource"},
		),
	}
}

func (m *promMetrics) ObserveRequest(method, outcome string, duration time.Duration) {
	m.requests.WithLabelValues(method, outcome).Inc()
	m.durations.WithLabelValues(method).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *promMetrics) SetCacheSize(resource string, n int) {
	m.cacheSize.WithLabelValues(resource).Set(float64(n))
}
