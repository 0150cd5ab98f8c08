// Package metrics provides Prometheus metrics for the smartart service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// defaultLatencyBuckets are in milliseconds.
var defaultLatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // constant bucket layout

// Manager manages all Prometheus metrics for the smartart service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingestion
	eventsReceived   *prometheus.CounterVec
	eventsMalformed  *prometheus.CounterVec
	stateMerges      prometheus.Counter
	unifiedTriggers  prometheus.Counter
	ingestLatency    prometheus.Histogram
	ratingsSubmitted prometheus.Counter

	// Store
	storeWrites       *prometheus.CounterVec
	storeWriteErrors  *prometheus.CounterVec
	storeWriteLatency prometheus.Histogram
	storeQueryLatency prometheus.Histogram
	writerBacklog     prometheus.Gauge

	// Correlation and blending
	correlationMatched   prometheus.Counter
	correlationUnmatched prometheus.Counter
	modelAvailable       prometheus.Gauge
	blendRequests        *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "smartart",
		subsystem:        "ingest",
		histogramBuckets: defaultLatencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether metric updates are recorded.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
		Buckets:     m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	m.eventsReceived = m.counterVec("events_received_total", "Sensor and motion events received by topic", "topic")
	m.eventsMalformed = m.counterVec("events_malformed_total", "Events dropped as malformed by topic", "topic")
	m.stateMerges = m.counter("state_merges_total", "Partial updates merged into the live snapshot")
	m.unifiedTriggers = m.counter("unified_triggers_total", "Motion events that wrote a unified snapshot")
	m.ingestLatency = m.histogram("ingest_latency_milliseconds", "Time to normalize and apply one event")
	m.ratingsSubmitted = m.counter("ratings_submitted_total", "Visual ratings accepted")

	m.storeWrites = m.counterVec("store_writes_total", "Records appended by measurement", "measurement")
	m.storeWriteErrors = m.counterVec("store_write_errors_total", "Failed appends by measurement and reason", "measurement", "reason")
	m.storeWriteLatency = m.histogram("store_write_latency_milliseconds", "Store append latency")
	m.storeQueryLatency = m.histogram("store_query_latency_milliseconds", "Store query latency")
	m.writerBacklog = m.gauge("writer_backlog", "Records waiting in the asynchronous writer")

	m.correlationMatched = m.counter("correlation_matched_total", "Ratings paired with a sensor record")
	m.correlationUnmatched = m.counter("correlation_unmatched_total", "Ratings without a sensor record inside the window")
	m.modelAvailable = m.gauge("model_available", "1 when a suggestion model is loaded")
	m.blendRequests = m.counterVec("blend_requests_total", "Blend requests by outcome", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge("queue_size", "Current size of the message queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of messages enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of messages dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of active workers")
	m.workerIdleCount = m.gauge("worker_idle_count", "Number of idle workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency")
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of worker errors")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// RecordEventReceived counts one inbound event on topic.
func RecordEventReceived(topic string) {
	if globalManager.enabled {
		globalManager.eventsReceived.WithLabelValues(topic).Inc()
	}
}

// RecordEventMalformed counts one dropped event on topic.
func RecordEventMalformed(topic string) {
	if globalManager.enabled {
		globalManager.eventsMalformed.WithLabelValues(topic).Inc()
	}
}

// RecordStateMerge counts a merge into the state buffer.
func RecordStateMerge() {
	if globalManager.enabled {
		globalManager.stateMerges.Inc()
	}
}

// RecordUnifiedTrigger counts a motion-triggered unified write.
func RecordUnifiedTrigger() {
	if globalManager.enabled {
		globalManager.unifiedTriggers.Inc()
	}
}

// RecordIngestLatency records time spent applying one event.
func RecordIngestLatency(d time.Duration) {
	if globalManager.enabled {
		globalManager.ingestLatency.Observe(ms(d))
	}
}

// RecordRatingSubmitted counts an accepted rating.
func RecordRatingSubmitted() {
	if globalManager.enabled {
		globalManager.ratingsSubmitted.Inc()
	}
}

// RecordStoreWrite counts a successful append and its latency.
func RecordStoreWrite(measurement string, d time.Duration) {
	if globalManager.enabled {
		globalManager.storeWrites.WithLabelValues(measurement).Inc()
		globalManager.storeWriteLatency.Observe(ms(d))
	}
}

// RecordStoreWriteError counts a failed append.
func RecordStoreWriteError(measurement, reason string) {
	if globalManager.enabled {
		globalManager.storeWriteErrors.WithLabelValues(measurement, reason).Inc()
	}
}

// RecordStoreQuery records store query latency.
func RecordStoreQuery(d time.Duration) {
	if globalManager.enabled {
		globalManager.storeQueryLatency.Observe(ms(d))
	}
}

// UpdateWriterBacklog sets the number of pending asynchronous writes.
func UpdateWriterBacklog(n int) {
	if globalManager.enabled {
		globalManager.writerBacklog.Set(float64(n))
	}
}

// RecordCorrelation adds the outcome of one correlation run.
func RecordCorrelation(matched, unmatched int) {
	if globalManager.enabled {
		globalManager.correlationMatched.Add(float64(matched))
		globalManager.correlationUnmatched.Add(float64(unmatched))
	}
}

// SetModelAvailable flags whether a suggestion model is loaded.
func SetModelAvailable(ok bool) {
	if !globalManager.enabled {
		return
	}
	if ok {
		globalManager.modelAvailable.Set(1)
		return
	}
	globalManager.modelAvailable.Set(0)
}

// RecordBlendRequest counts one blend request; outcome is "blended" or "passthrough".
func RecordBlendRequest(outcome string) {
	if globalManager.enabled {
		globalManager.blendRequests.WithLabelValues(outcome).Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if globalManager.enabled {
		globalManager.queueUtilization.Set(utilization)
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueueRate.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeueRate.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if globalManager.enabled {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	if globalManager.enabled {
		globalManager.workerActiveCount.Set(float64(count))
	}
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	if globalManager.enabled {
		globalManager.workerIdleCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records worker processing latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if globalManager.enabled {
		globalManager.workerErrorRate.Inc()
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
