// Package metrics provides Prometheus-based monitoring for tcpscan. Metrics
// can be exported once at the end of a run through the node_exporter
// textfile format, or served over HTTP in watch mode.
package metrics

import "time"

// Label values for probe outcomes and scan statuses.
const (
	OutcomeOpen   = "open"
	OutcomeClosed = "closed"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Nop discards every metric.
type Nop struct{}

// RecordProbe implements Recorder.
func (Nop) RecordProbe(string, time.Duration) {}

// WorkerStarted implements Recorder.
func (Nop) WorkerStarted() {}

// WorkerStopped implements Recorder.
func (Nop) WorkerStopped() {}

// SetQueueDepth implements Recorder.
func (Nop) SetQueueDepth(int) {}

// SetAddressesResolved implements Recorder.
func (Nop) SetAddressesResolved(int) {}

// RecordScan implements Recorder.
func (Nop) RecordScan(string, time.Duration) {}

// Timer provides a simple way to measure execution time.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() Timer {
	return Timer{start: time.Now()}
}

// Elapsed returns the time since the timer was started.
func (t Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
