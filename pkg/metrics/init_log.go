package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLogMetrics() {
	r.OperationsCommittedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketch_operations_committed_total",
			Help: "Total number of operations committed to the sequenced log",
		},
		[]string{"kind"}, // draw, erase, clear
	)

	r.OperationsTruncatedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sketch_operations_truncated_total",
			Help: "Total number of undone operations discarded by a branch truncation",
		},
	)

	r.OperationsTrimmedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sketch_operations_trimmed_total",
			Help: "Total number of operations dropped from the front by the retained cap",
		},
	)

	r.UndosTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sketch_undos_total",
			Help: "Total number of undo commands applied",
		},
	)

	r.RedosTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sketch_redos_total",
			Help: "Total number of redo commands applied",
		},
	)

	r.LogLength = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sketch_log_length",
			Help: "Number of operations currently held in the sequenced log",
		},
	)

	r.LogPointer = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sketch_log_pointer",
			Help: "Current pointer position in the sequenced log (-1 means nothing visible)",
		},
	)
}
