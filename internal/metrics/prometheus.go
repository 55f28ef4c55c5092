package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all tcpscan metrics
	namespace = "tcpscan"

	// Subsystems
	subsystemScan   = "scan"
	subsystemProbe  = "probe"
	subsystemWorker = "worker"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Scan metrics
	scansTotal        *prometheus.CounterVec
	scanDuration      prometheus.Histogram
	addressesResolved prometheus.Gauge
	queueDepth        prometheus.Gauge

	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec

	// Worker metrics
	activeWorkers prometheus.Gauge
	peakWorkers   prometheus.Gauge

	mu       sync.Mutex
	active   int
	peak     int
	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
// registered on a private registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
	}

	pm.initScanMetrics()
	pm.initProbeMetrics()
	pm.initWorkerMetrics()
	pm.registerMetrics()

	return pm
}

// WithRuntimeCollectors registers the standard Go and process collectors.
// Only long-running modes want these; a textfile export would clash with the
// exporter's own runtime metrics.
func (pm *PrometheusMetrics) WithRuntimeCollectors() *PrometheusMetrics {
	pm.registry.MustRegister(collectors.NewGoCollector())
	pm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return pm
}

// initScanMetrics initializes scan-related metrics
func (pm *PrometheusMetrics) initScanMetrics() {
	pm.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of scan runs by status",
		},
		[]string{"status"},
	)

	pm.scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Duration of scan runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0},
		},
	)

	pm.addressesResolved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "addresses_resolved",
			Help:      "Number of addresses the target host resolved to in the last run",
		},
	)

	pm.queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "queue_depth",
			Help:      "Number of probe targets waiting in the work queue",
		},
	)
}

// initProbeMetrics initializes probe-related metrics
func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "total",
			Help:      "Total number of probes by outcome",
		},
		[]string{"outcome"},
	)

	pm.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "duration_seconds",
			Help:      "Duration of single probes in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0, 10.0, 100.0},
		},
		[]string{"outcome"},
	)
}

// initWorkerMetrics initializes worker pool metrics
func (pm *PrometheusMetrics) initWorkerMetrics() {
	pm.activeWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemWorker,
			Name:      "active",
			Help:      "Number of currently running workers",
		},
	)

	pm.peakWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemWorker,
			Name:      "peak",
			Help:      "Highest number of simultaneously running workers",
		},
	)
}

// registerMetrics registers all metrics with the Prometheus registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(pm.scansTotal)
	pm.registry.MustRegister(pm.scanDuration)
	pm.registry.MustRegister(pm.addressesResolved)
	pm.registry.MustRegister(pm.queueDepth)

	pm.registry.MustRegister(pm.probesTotal)
	pm.registry.MustRegister(pm.probeDuration)

	pm.registry.MustRegister(pm.activeWorkers)
	pm.registry.MustRegister(pm.peakWorkers)
}

// Handler returns an HTTP handler exposing the registry.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// WriteToTextfile writes the registry in text exposition format, atomically,
// for the node_exporter textfile collector.
func (pm *PrometheusMetrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, pm.registry)
}

// RecordProbe counts a probe and observes its duration
func (pm *PrometheusMetrics) RecordProbe(outcome string, duration time.Duration) {
	pm.probesTotal.WithLabelValues(outcome).Inc()
	pm.probeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// WorkerStarted increments the active worker gauge
func (pm *PrometheusMetrics) WorkerStarted() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.active++
	pm.activeWorkers.Set(float64(pm.active))
	if pm.active > pm.peak {
		pm.peak = pm.active
		pm.peakWorkers.Set(float64(pm.peak))
	}
}

// WorkerStopped decrements the active worker gauge
func (pm *PrometheusMetrics) WorkerStopped() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.active--
	pm.activeWorkers.Set(float64(pm.active))
}

// SetQueueDepth sets the work queue depth
func (pm *PrometheusMetrics) SetQueueDepth(depth int) {
	pm.queueDepth.Set(float64(depth))
}

// SetAddressesResolved sets the resolved address gauge
func (pm *PrometheusMetrics) SetAddressesResolved(count int) {
	pm.addressesResolved.Set(float64(count))
}

// RecordScan counts a scan run and observes its duration
func (pm *PrometheusMetrics) RecordScan(status string, duration time.Duration) {
	pm.scansTotal.WithLabelValues(status).Inc()
	pm.scanDuration.Observe(duration.Seconds())
}
