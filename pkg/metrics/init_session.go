package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSessionMetrics() {
	r.ConnectedParticipants = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sketch_connected_participants",
			Help: "Number of currently connected participants",
		},
	)

	r.InFlightStrokes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sketch_inflight_strokes",
			Help: "Number of strokes currently streaming but not yet committed",
		},
	)

	r.MessagesReceivedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketch_messages_received_total",
			Help: "Total number of wire messages received from clients",
		},
		[]string{"type"},
	)

	r.OperationsRejectedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketch_operations_rejected_total",
			Help: "Total number of client messages rejected by validation",
		},
		[]string{"type"},
	)

	r.BroadcastsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sketch_broadcasts_total",
			Help: "Total number of messages fanned out to participants",
		},
		[]string{"type"},
	)

	r.BroadcastDropsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sketch_broadcast_drops_total",
			Help: "Total number of broadcast deliveries skipped because a connection's send buffer was full or closed",
		},
	)

	r.ResyncsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sketch_resyncs_total",
			Help: "Total number of full-state resync responses served",
		},
	)

	r.StreamRehydrationsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "sketch_stream_rehydrations_total",
			Help: "Total number of in-flight strokes rehydrated from a stream message after a missed start",
		},
	)
}
