package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	rpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trctl",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "RPC calls by method and outcome.",
		},
		[]string{"method", "outcome"},
	)
	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trctl",
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "RPC call duration in seconds, including session retries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "outcome"},
	)
	sessionRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trctl",
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Session tokens replaced after a 409 response.",
		},
		[]string{"endpoint"},
	)
	sessionNegotiations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trctl",
			Subsystem: "session",
			Name:      "negotiations_total",
			Help:      "Initial session negotiations by outcome.",
		},
		[]string{"endpoint", "outcome"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			rpcRequests,
			rpcDuration,
			sessionRefreshes,
			sessionNegotiations,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordRPC(method, outcome string, duration time.Duration) {
	RegisterMetrics()
	rpcRequests.WithLabelValues(method, outcome).Inc()
	rpcDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}

func RecordSessionRefresh(endpoint string) {
	RegisterMetrics()
	sessionRefreshes.WithLabelValues(endpoint).Inc()
}

func RecordNegotiation(endpoint string, success bool) {
	RegisterMetrics()
	outcome := "failure"
	if success {
		outcome = "success"
	}
	sessionNegotiations.WithLabelValues(endpoint, outcome).Inc()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
