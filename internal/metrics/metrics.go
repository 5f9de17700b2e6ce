// Package metrics instruments automaton operations with Prometheus collectors.
//
// Collectors are registered on the default registry at init, so any process
// that exposes prometheus.DefaultGatherer sees them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpsTotal counts derived graphs built, by operation name.
	OpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gtn_operations_total",
		Help: "Total derived graphs built by operation",
	}, []string{"op"})

	// OpDuration tracks how long building a derived graph takes.
	OpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gtn_operation_duration_seconds",
		Help:    "Operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	}, []string{"op"})

	// ComposeStates counts state pairs explored by compose and intersect.
	ComposeStates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gtn_compose_states_explored_total",
		Help: "Total state pairs explored during composition",
	})

	// BackwardTotal counts backward passes.
	BackwardTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gtn_backward_total",
		Help: "Total backward passes",
	})

	// BackwardGraphs tracks how many graphs a backward pass visits.
	BackwardGraphs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gtn_backward_graphs_visited",
		Help:    "Number of graphs visited per backward pass",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 500, 1000},
	})
)

// ObserveOp records one completed operation started at start.
func ObserveOp(op string, start time.Time) {
	OpsTotal.WithLabelValues(op).Inc()
	OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
