package heap

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	// liveObjects prometheus metric.
	liveObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of live objects created through the heap API",
			Name:      "live_objects",
			Namespace: "refheap",
		},
	)
	// operations prometheus metric.
	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of heap operations performed",
			Name:      "operations_total",
			Namespace: "refheap",
		},
		[]string{"op"},
	)
	// allocationFailures prometheus metric.
	allocationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of constructor calls that failed to allocate",
			Name:      "allocation_failures_total",
			Namespace: "refheap",
		},
	)
)

func init() {
	prometheus.MustRegister(
		liveObjects,
		operations,
		allocationFailures,
	)
}

func (s *State) countOp(op string) {
	if s.metrics {
		operations.WithLabelValues(op).Inc()
	}
}

func (s *State) updateLiveMetric(delta int) {
	if s.metrics {
		liveObjects.Add(float64(delta))
	}
}

func (s *State) countAllocFailure() {
	if s.metrics {
		allocationFailures.Inc()
	}
}
