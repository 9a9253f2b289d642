package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "loserlab",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of API handlers",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loserlab",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by API endpoint",
		},
		[]string{"endpoint"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loserlab",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Run submissions rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, RateLimited)
	})
}

// Observe records one handler call; server-side failures also count as errors.
func Observe(endpoint string, start time.Time, status int) {
	APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if status >= http.StatusInternalServerError {
		APIErrors.WithLabelValues(endpoint).Inc()
	}
}
