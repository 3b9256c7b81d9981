package queue

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for queue monitoring
var (
	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnostics_events_published_total",
			Help: "Total number of test completion events published, by test status",
		},
		[]string{"status"},
	)

	natsReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_reconnects_total",
			Help: "Total number of NATS reconnection events",
		},
	)

	metricsOnce sync.Once
)

func init() {
	metricsOnce.Do(func() {
		prometheus.DefaultRegisterer.MustRegister(eventsPublishedTotal)
		prometheus.DefaultRegisterer.MustRegister(natsReconnectsTotal)
	})
}
