// Package metrics provides Prometheus metrics for the gestura augmentation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the gestura service.
type Manager struct {
	namespace        string
	subsystem        string
	latencyBuckets  []float64 // per-sample chain latency, ms
	durationBuckets []float64 // whole-run wall time, s
	constLabels     map[string]string
	registry        prometheus.Registerer

	// Augmentation metrics
	runsSubmitted     *prometheus.CounterVec
	runsFinished      *prometheus.CounterVec
	activeRuns        prometheus.Gauge
	samplesGenerated  prometheus.Counter
	samplesSkipped    prometheus.Counter
	stageRetries      prometheus.Counter
	sampleLatency     prometheus.Histogram
	runDuration       prometheus.Histogram
	duplicateRequests prometheus.Counter

	// Repository metrics
	runsStored  prometheus.Gauge
	runsEvicted prometheus.Counter

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount       prometheus.Gauge
	workerActiveCount prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "gestura",
		subsystem:       "augment",
		latencyBuckets:  []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
		durationBuckets: prometheus.ExponentialBuckets(0.01, 4, 9),
		constLabels:     map[string]string{},
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.runsSubmitted = m.counterVec("runs_submitted_total", "Total number of augmentation runs accepted, by chain", "chain")
	m.runsFinished = m.counterVec("runs_finished_total", "Total number of augmentation runs that reached a terminal status", "status")
	m.activeRuns = m.gauge("active_runs", "Number of runs currently executing")
	m.samplesGenerated = m.counter("samples_generated_total", "Total number of augmented samples produced")
	m.samplesSkipped = m.counter("samples_skipped_total", "Total number of samples dropped under the skip failure policy")
	m.stageRetries = m.counter("stage_retries_total", "Total number of retryable stage re-runs")
	m.sampleLatency = m.histogram("sample_latency_milliseconds", "Time to run one chain application in milliseconds", m.latencyBuckets)
	m.runDuration = m.histogram("run_duration_seconds", "Wall time of a whole augmentation run in seconds", m.durationBuckets)
	m.duplicateRequests = m.counter("duplicate_requests_total", "Total number of submissions answered from the request id registry")

	m.runsStored = m.gauge("runs_stored", "Number of runs held by the run store")
	m.runsEvicted = m.counter("runs_evicted_total", "Total number of finished runs evicted by retention")

	m.queueSize = m.gauge("queue_size", "Current number of queued run jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerCount = m.gauge("worker_count", "Number of workers in the pool")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently executing a run")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordRunSubmitted counts an accepted run for the given chain.
func RecordRunSubmitted(chain string) {
	globalManager.runsSubmitted.WithLabelValues(chain).Inc()
}

// RecordRunFinished counts a run reaching a terminal status.
func RecordRunFinished(status string) {
	globalManager.runsFinished.WithLabelValues(status).Inc()
}

// UpdateActiveRuns sets the number of executing runs.
func UpdateActiveRuns(n int) {
	globalManager.activeRuns.Set(float64(n))
}

// RecordSampleGenerated increments the generated samples counter.
func RecordSampleGenerated() {
	globalManager.samplesGenerated.Inc()
}

// RecordSampleSkipped increments the skipped samples counter.
func RecordSampleSkipped() {
	globalManager.samplesSkipped.Inc()
}

// RecordStageRetries adds n retryable stage re-runs.
func RecordStageRetries(n int) {
	if n > 0 {
		globalManager.stageRetries.Add(float64(n))
	}
}

// RecordSampleLatency records one chain application in milliseconds.
func RecordSampleLatency(latencyMs float64) {
	globalManager.sampleLatency.Observe(latencyMs)
}

// RecordRunDuration records the wall time of a run in seconds.
func RecordRunDuration(seconds float64) {
	globalManager.runDuration.Observe(seconds)
}

// RecordDuplicateRequest increments the duplicate submission counter.
func RecordDuplicateRequest() {
	globalManager.duplicateRequests.Inc()
}

// UpdateRunsStored sets the number of runs held by the store.
func UpdateRunsStored(n int) {
	globalManager.runsStored.Set(float64(n))
}

// RecordRunEvicted increments the evicted runs counter.
func RecordRunEvicted() {
	globalManager.runsEvicted.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
