package rpc

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type serverMetrics struct {
	requests    *prometheus.CounterVec
	errors      *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	deposits    prometheus.Counter
	withdrawals prometheus.Counter
	harvests    prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsRegistry *serverMetrics
)

// Metrics returns the lazily-initialised request metrics registry.
func Metrics() *serverMetrics {
	metricsOnce.Do(func() {
		metricsRegistry = &serverMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldvault",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "yieldvault",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by operation and status code.",
			}, []string{"operation", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "yieldvault",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			deposits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "yieldvault",
				Subsystem: "flows",
				Name:      "deposits_total",
				Help:      "Total accepted deposits.",
			}),
			withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "yieldvault",
				Subsystem: "flows",
				Name:      "withdrawals_total",
				Help:      "Total accepted withdrawals.",
			}),
			harvests: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "yieldvault",
				Subsystem: "flows",
				Name:      "harvests_total",
				Help:      "Total accepted harvests.",
			}),
		}
		prometheus.MustRegister(
			metricsRegistry.requests,
			metricsRegistry.errors,
			metricsRegistry.latency,
			metricsRegistry.deposits,
			metricsRegistry.withdrawals,
			metricsRegistry.harvests,
		)
	})
	return metricsRegistry
}
