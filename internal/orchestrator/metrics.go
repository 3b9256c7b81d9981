package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for orchestration monitoring
var (
	testsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnostic_tests_total",
			Help: "Total number of diagnostic test runs by final status",
		},
		[]string{"status"},
	)

	categoriesRunTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnostic_categories_run_total",
			Help: "Total number of probe category executions",
		},
		[]string{"category"},
	)

	categoriesFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnostic_categories_failed_total",
			Help: "Total number of probe categories that ended in failure",
		},
		[]string{"category"},
	)

	retriesExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnostic_retries_exhausted_total",
			Help: "Total number of probe invocations that exhausted their retry budget",
		},
		[]string{"category"},
	)

	testDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diagnostic_test_duration_seconds",
			Help:    "Wall-clock duration of complete diagnostic test runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	metricsOnce sync.Once
)

func init() {
	metricsOnce.Do(func() {
		prometheus.DefaultRegisterer.MustRegister(testsTotal)
		prometheus.DefaultRegisterer.MustRegister(categoriesRunTotal)
		prometheus.DefaultRegisterer.MustRegister(categoriesFailedTotal)
		prometheus.DefaultRegisterer.MustRegister(retriesExhaustedTotal)
		prometheus.DefaultRegisterer.MustRegister(testDurationSeconds)
	})
}
