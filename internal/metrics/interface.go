// Package metrics provides interfaces for metrics collection and monitoring.
package metrics

import "time"

// Recorder defines the metrics the scan engine emits. The scanner and the
// worker pool depend on this interface so tests can swap in Nop or a fresh
// Prometheus registry.
type Recorder interface {
	// RecordProbe counts one finished probe and observes its duration.
	RecordProbe(outcome string, duration time.Duration)

	// WorkerStarted and WorkerStopped track the number of live workers.
	WorkerStarted()
	WorkerStopped()

	// SetQueueDepth reports the number of work items not yet popped.
	SetQueueDepth(depth int)

	// SetAddressesResolved reports how many addresses the last resolution produced.
	SetAddressesResolved(count int)

	// RecordScan counts one finished scan run and observes its duration.
	RecordScan(status string, duration time.Duration)
}

// Ensure that both implementations satisfy Recorder.
var (
	_ Recorder = (*PrometheusMetrics)(nil)
	_ Recorder = Nop{}
)
