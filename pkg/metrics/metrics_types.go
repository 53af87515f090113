package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Log metrics
	OperationsCommittedTotal *prometheus.CounterVec
	OperationsTruncatedTotal prometheus.Counter
	OperationsTrimmedTotal   prometheus.Counter
	UndosTotal               prometheus.Counter
	RedosTotal               prometheus.Counter
	LogLength                prometheus.Gauge
	LogPointer               prometheus.Gauge

	// Session metrics
	ConnectedParticipants    prometheus.Gauge
	InFlightStrokes          prometheus.Gauge
	MessagesReceivedTotal    *prometheus.CounterVec
	OperationsRejectedTotal  *prometheus.CounterVec
	BroadcastsTotal          *prometheus.CounterVec
	BroadcastDropsTotal      prometheus.Counter
	ResyncsTotal             prometheus.Counter
	StreamRehydrationsTotal  prometheus.Counter

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initLogMetrics()
	r.initSessionMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
