package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement outcomes used as label values.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeBusy    = "busy"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingest
	eventsProcessed prometheus.Counter
	eventsDuplicate prometheus.Counter
	indexUpdates    prometheus.Counter
	rankedPlayers   prometheus.Gauge

	// Index and store
	indexLatency *prometheus.HistogramVec
	storeLatency *prometheus.HistogramVec

	// Queries
	queryLatency     *prometheus.HistogramVec
	enrichmentSkips  *prometheus.CounterVec
	autocompleteHits prometheus.Histogram

	// Settlement
	settlementRuns           *prometheus.CounterVec
	settlementDuration       prometheus.Histogram
	settlementLastDurationMs prometheus.Gauge
	settlementLastUnix       prometheus.Gauge
	settlementRewardPool     prometheus.Gauge
	settlementParticipants   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueue           prometheus.Counter
	queueDequeue           prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	errorsByComponent *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: name, Help: help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.eventsProcessed = m.counter("events_processed_total", "Score events applied to the index")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Score events dropped as duplicates")
	m.indexUpdates = m.counter("index_updates_total", "Successful index writes")
	m.rankedPlayers = m.gauge("ranked_players", "Participants currently in the score index")

	m.indexLatency = m.histogramVec("index_latency_milliseconds", "Score index operation latency", "op")
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Record store operation latency", "op")

	m.queryLatency = m.histogramVec("query_latency_milliseconds", "Query service latency", "query")
	m.enrichmentSkips = m.counterVec("enrichment_skipped_total",
		"Ranked ids dropped from a response because enrichment failed", "reason")
	m.autocompleteHits = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "autocomplete_results", Help: "Suggestions returned per autocomplete call",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})

	m.settlementRuns = m.counterVec("settlement_runs_total", "Settlement runs by outcome", "outcome")
	m.settlementDuration = m.histogram("settlement_duration_milliseconds", "Settlement run duration")
	m.settlementLastDurationMs = m.gauge("settlement_last_duration_milliseconds", "Duration of the last settlement")
	m.settlementLastUnix = m.gauge("settlement_last_unix", "Unix time of the last successful settlement")
	m.settlementRewardPool = m.gauge("settlement_reward_pool", "Reward pool of the last settlement")
	m.settlementParticipants = m.gauge("settlement_participants", "Participants settled by the last run")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration",
		"endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Current size of the event queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Messages enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Messages dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue failures")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency")

	m.workerCount = m.gauge("worker_count", "Configured workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Running workers")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Average events applied per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-event processing latency")
	m.workerErrors = m.counter("worker_errors_total", "Events the workers failed to apply")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Live goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause")
}

// RecordEventProcessed increments the events processed counter.
func RecordEventProcessed() { globalManager.eventsProcessed.Inc() }

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }

// RecordIndexUpdate increments the index updates counter.
func RecordIndexUpdate() { globalManager.indexUpdates.Inc() }

// UpdateRankedPlayers sets the number of ranked participants.
func UpdateRankedPlayers(count int) { globalManager.rankedPlayers.Set(float64(count)) }

// RecordIndexLatency observes a score index operation.
func RecordIndexLatency(op string, latencyMs float64) {
	globalManager.indexLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreLatency observes a record store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordQueryLatency observes a query service call.
func RecordQueryLatency(query string, latencyMs float64) {
	globalManager.queryLatency.WithLabelValues(query).Observe(latencyMs)
}

// RecordEnrichmentSkip counts an id dropped during enrichment.
func RecordEnrichmentSkip(reason string) {
	globalManager.enrichmentSkips.WithLabelValues(reason).Inc()
}

// RecordAutocompleteResults observes the size of an autocomplete answer.
func RecordAutocompleteResults(n int) { globalManager.autocompleteHits.Observe(float64(n)) }

// RecordSettlementRun counts a settlement run by outcome.
func RecordSettlementRun(outcome string) {
	globalManager.settlementRuns.WithLabelValues(outcome).Inc()
}

// RecordSettlementDuration records the duration of a completed settlement.
func RecordSettlementDuration(durationMs float64) {
	globalManager.settlementDuration.Observe(durationMs)
	globalManager.settlementLastDurationMs.Set(durationMs)
}

// UpdateSettlementSummary publishes the figures of the last successful run.
func UpdateSettlementSummary(unix int64, pool float64, participants int) {
	globalManager.settlementLastUnix.Set(float64(unix))
	globalManager.settlementRewardPool.Set(pool)
	globalManager.settlementParticipants.Set(float64(participants))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueue.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeue.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// UpdateWorkerMessagesPerSecond sets the average processing rate.
func UpdateWorkerMessagesPerSecond(rate float64) { globalManager.workerMessagesPerSecond.Set(rate) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// RecordSystemGCPauseTime records the average GC pause.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPauseTime.Observe(ms) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
