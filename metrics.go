package gcoll

import (
	"time"

	"github.com/Giulio2002/gcoll/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values
const (
	outcomeOK     = "ok"
	outcomeAbsent = "absent"
	outcomeError  = "error"
)

var (
	// OperationsTotal counts backend operations by collection, operation and
	// outcome (ok, absent, error).
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gcoll_operations_total",
			Help: "Total number of collection operations",
		},
		[]string{"collection", "op", "outcome"},
	)

	// OperationDuration measures operation latency including the transaction.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gcoll_operation_duration_seconds",
			Help:    "Duration of collection operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000005, 4, 10),
		},
		[]string{"op"},
	)

	// Records is the record count of the shared table last observed by
	// Count. Collections share the table, so it carries no collection label.
	Records = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gcoll_records",
			Help: "Number of records in the table as last counted",
		},
	)
)

// outcomeOf maps an operation error to its outcome label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case engine.IsNotFound(err):
		return outcomeAbsent
	}
	return outcomeError
}

func observe(collection, op string, start time.Time, outcome string) {
	OperationsTotal.WithLabelValues(collection, op, outcome).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
