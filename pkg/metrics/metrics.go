package metrics

// RecordCommit records a committed operation and the resulting log shape
func (r *Registry) RecordCommit(kind string, truncated, trimmed, length, pointer int) {
	r.OperationsCommittedTotal.WithLabelValues(kind).Inc()
	if truncated > 0 {
		r.OperationsTruncatedTotal.Add(float64(truncated))
	}
	if trimmed > 0 {
		r.OperationsTrimmedTotal.Add(float64(trimmed))
	}
	r.UpdateLogShape(length, pointer)
}

// UpdateLogShape updates the log length and pointer gauges
func (r *Registry) UpdateLogShape(length, pointer int) {
	r.LogLength.Set(float64(length))
	r.LogPointer.Set(float64(pointer))
}

// RecordMessage records a received client message by wire type
func (r *Registry) RecordMessage(msgType string) {
	r.MessagesReceivedTotal.WithLabelValues(msgType).Inc()
}

// RecordRejection records a validation rejection by wire type
func (r *Registry) RecordRejection(msgType string) {
	r.OperationsRejectedTotal.WithLabelValues(msgType).Inc()
}

// RecordBroadcast records a fan-out of the given wire type to n receivers
func (r *Registry) RecordBroadcast(msgType string, receivers int) {
	r.BroadcastsTotal.WithLabelValues(msgType).Add(float64(receivers))
}
