// Package metrics provides Prometheus metrics for the SLUICE ingestion service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the SLUICE service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Invocation metrics
	invocationsTotal   *prometheus.CounterVec
	invocationDuration prometheus.Histogram

	// Record accounting metrics
	recordsDecoded prometheus.Counter
	recordsValid   prometheus.Counter
	recordsInvalid prometheus.Counter
	recordsWritten prometheus.Counter
	recordsFailed  prometheus.Counter

	// Sink metrics
	batchSubmissions prometheus.Counter
	batchRetries     prometheus.Counter
	sinkPutLatency   prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process health metrics
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
}

// globalManager is the package-wide manager used by the Record*/Update* helpers.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// customRegistry keeps SLUICE metrics separate from the default registry.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with configuration options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sluice",
		subsystem:        "ingest",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.invocationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "invocations_total",
		Help:      "Invocations by terminal status (completed, failed).",
	}, []string{"status"})

	m.invocationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "invocation_duration_ms",
		Help:      "End-to-end invocation latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.recordsDecoded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_decoded_total",
		Help:      "Records decoded from source blobs.",
	})
	m.recordsValid = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_valid_total",
		Help:      "Records that passed validation.",
	})
	m.recordsInvalid = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_invalid_total",
		Help:      "Records rejected by validation.",
	})
	m.recordsWritten = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_written_total",
		Help:      "Records durably written to the sink.",
	})
	m.recordsFailed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_failed_total",
		Help:      "Records that failed to write after retry exhaustion.",
	})

	m.batchSubmissions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_submissions_total",
		Help:      "Batch put calls submitted to the sink, including retries.",
	})
	m.batchRetries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_retries_total",
		Help:      "Backoff rounds triggered by throttled items.",
	})
	m.sinkPutLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sink_put_latency_ms",
		Help:      "Latency of one sink batch put in milliseconds.",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method, and status code.",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryBytes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_bytes",
		Help:      "Allocated heap bytes.",
	})
	m.systemGoroutines = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutines",
		Help:      "Number of live goroutines.",
	})
}

// RecordInvocation counts one finished invocation by status.
func RecordInvocation(status string) {
	if globalManager.enabled {
		globalManager.invocationsTotal.WithLabelValues(status).Inc()
	}
}

// RecordInvocationDuration observes end-to-end invocation latency.
func RecordInvocationDuration(latencyMs float64) {
	if globalManager.enabled {
		globalManager.invocationDuration.Observe(latencyMs)
	}
}

// RecordDecodedRecords counts records decoded from a blob.
func RecordDecodedRecords(count int) {
	if globalManager.enabled {
		globalManager.recordsDecoded.Add(float64(count))
	}
}

// RecordValidRecords counts records that passed validation.
func RecordValidRecords(count int) {
	if globalManager.enabled {
		globalManager.recordsValid.Add(float64(count))
	}
}

// RecordInvalidRecords counts records rejected by validation.
func RecordInvalidRecords(count int) {
	if globalManager.enabled {
		globalManager.recordsInvalid.Add(float64(count))
	}
}

// RecordWrittenRecords counts records durably written.
func RecordWrittenRecords(count int) {
	if globalManager.enabled {
		globalManager.recordsWritten.Add(float64(count))
	}
}

// RecordFailedRecords counts records failed after retry exhaustion.
func RecordFailedRecords(count int) {
	if globalManager.enabled {
		globalManager.recordsFailed.Add(float64(count))
	}
}

// RecordBatchSubmission counts one sink batch put call.
func RecordBatchSubmission() {
	if globalManager.enabled {
		globalManager.batchSubmissions.Inc()
	}
}

// RecordBatchRetry counts one backoff round for throttled items.
func RecordBatchRetry() {
	if globalManager.enabled {
		globalManager.batchRetries.Inc()
	}
}

// RecordSinkPutLatency observes the latency of one sink batch put.
func RecordSinkPutLatency(latencyMs float64) {
	if globalManager.enabled {
		globalManager.sinkPutLatency.Observe(latencyMs)
	}
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes the latency of one HTTP request.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// UpdateSystemMemoryUsage sets the allocated heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if globalManager.enabled {
		globalManager.systemMemoryBytes.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	if globalManager.enabled {
		globalManager.systemGoroutines.Set(float64(count))
	}
}

// GetRegistry returns the registry holding all SLUICE metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
