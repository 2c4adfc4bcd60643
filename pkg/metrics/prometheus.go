// Package metrics provides Prometheus metrics for the agon competition
// read layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Ledger gateway metrics.
	ledgerCalls        *prometheus.CounterVec // op, outcome
	ledgerCallDuration *prometheus.HistogramVec
	ledgerFailovers    prometheus.Counter
	ledgerUnavailable  prometheus.Counter

	// State cache metrics.
	cacheHits          *prometheus.CounterVec // kind
	cacheMisses        *prometheus.CounterVec
	cacheStaleServes   *prometheus.CounterVec
	cacheInvalidations prometheus.Counter

	// Rate limiter metrics.
	rateLimited *prometheus.CounterVec // op

	// Epoch controller metrics.
	epochTransitions *prometheus.CounterVec // step, outcome

	// Evaluation pipeline metrics.
	evalQueueDepth    prometheus.Gauge
	evalQueueCapacity prometheus.Gauge
	evalEnqueueErrors prometheus.Counter
	evalProcessed     prometheus.Counter
	evalErrors        prometheus.Counter
	evalLatency       prometheus.Histogram
	workerActive      prometheus.Gauge

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec // endpoint, method, status
	httpRequestDuration *prometheus.HistogramVec

	// Process metrics.
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPause        prometheus.Histogram
}

var defaultManager *Manager

func init() { //nolint:gochecknoinits // global metrics setup mirrors service lifetime
	defaultManager = NewManager()
}

// NewManager builds a Manager with its own registry and registers all
// collectors on it.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "agon",
		subsystem:        "core",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}
	histOpts := func(name, help string) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
			Buckets:   m.histogramBuckets,
		}
	}

	m.ledgerCalls = prometheus.NewCounterVec(
		factory("ledger_calls_total", "Ledger authority calls by operation and outcome."),
		[]string{"op", "outcome"},
	)
	m.ledgerCallDuration = prometheus.NewHistogramVec(
		histOpts("ledger_call_duration_ms", "Ledger call duration in milliseconds."),
		[]string{"op"},
	)
	m.ledgerFailovers = prometheus.NewCounter(
		factory("ledger_failovers_total", "Endpoint rotations after a failed ledger call."),
	)
	m.ledgerUnavailable = prometheus.NewCounter(
		factory("ledger_unavailable_total", "Ledger reads that exhausted every retry attempt."),
	)

	m.cacheHits = prometheus.NewCounterVec(
		factory("cache_hits_total", "Fresh cache hits by entry kind."),
		[]string{"kind"},
	)
	m.cacheMisses = prometheus.NewCounterVec(
		factory("cache_misses_total", "Cache misses by entry kind."),
		[]string{"kind"},
	)
	m.cacheStaleServes = prometheus.NewCounterVec(
		factory("cache_stale_serves_total", "Stale cache entries served as degraded fallback."),
		[]string{"kind"},
	)
	m.cacheInvalidations = prometheus.NewCounter(
		factory("cache_invalidations_total", "Explicit cache invalidations."),
	)

	m.rateLimited = prometheus.NewCounterVec(
		factory("rate_limited_total", "Upstream reads suppressed by the rate limiter."),
		[]string{"op"},
	)

	m.epochTransitions = prometheus.NewCounterVec(
		factory("epoch_transitions_total", "Epoch transition steps by outcome."),
		[]string{"step", "outcome"},
	)

	m.evalQueueDepth = prometheus.NewGauge(
		gaugeOpts("eval_queue_depth", "Pending interactions awaiting evaluation."),
	)
	m.evalQueueCapacity = prometheus.NewGauge(
		gaugeOpts("eval_queue_capacity", "Capacity of the evaluation queue."),
	)
	m.evalEnqueueErrors = prometheus.NewCounter(
		factory("eval_enqueue_errors_total", "Evaluation submissions rejected by the queue."),
	)
	m.evalProcessed = prometheus.NewCounter(
		factory("eval_processed_total", "Interactions evaluated and recorded."),
	)
	m.evalErrors = prometheus.NewCounter(
		factory("eval_errors_total", "Evaluation attempts that failed."),
	)
	m.evalLatency = prometheus.NewHistogram(
		histOpts("eval_latency_ms", "End-to-end evaluation latency in milliseconds."),
	)
	m.workerActive = prometheus.NewGauge(
		gaugeOpts("worker_active", "Number of evaluation workers running."),
	)

	m.httpRequests = prometheus.NewCounterVec(
		factory("http_requests_total", "HTTP requests by endpoint, method and status."),
		[]string{"endpoint", "method", "status"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		histOpts("http_request_duration_ms", "HTTP request duration in milliseconds."),
		[]string{"endpoint", "method"},
	)

	m.systemMemoryUsage = prometheus.NewGauge(
		gaugeOpts("system_memory_bytes", "Allocated heap bytes."),
	)
	m.systemGoroutineCount = prometheus.NewGauge(
		gaugeOpts("system_goroutines", "Live goroutine count."),
	)
	m.systemGCPause = prometheus.NewHistogram(
		histOpts("system_gc_pause_ms", "Average GC pause time in milliseconds."),
	)

	m.registry.MustRegister(
		m.ledgerCalls, m.ledgerCallDuration, m.ledgerFailovers, m.ledgerUnavailable,
		m.cacheHits, m.cacheMisses, m.cacheStaleServes, m.cacheInvalidations,
		m.rateLimited, m.epochTransitions,
		m.evalQueueDepth, m.evalQueueCapacity, m.evalEnqueueErrors,
		m.evalProcessed, m.evalErrors, m.evalLatency, m.workerActive,
		m.httpRequests, m.httpRequestDuration,
		m.systemMemoryUsage, m.systemGoroutineCount, m.systemGCPause,
	)
}

// Package-level helpers record against the default manager.

// RecordLedgerCall counts one ledger call with its outcome
// (ok, error, unavailable, rejected).
func RecordLedgerCall(op, outcome string) {
	defaultManager.ledgerCalls.WithLabelValues(op, outcome).Inc()
}

// RecordLedgerCallDuration observes the duration of a ledger call.
func RecordLedgerCallDuration(op string, ms float64) {
	defaultManager.ledgerCallDuration.WithLabelValues(op).Observe(ms)
}

// RecordLedgerFailover counts one endpoint rotation.
func RecordLedgerFailover() { defaultManager.ledgerFailovers.Inc() }

// RecordLedgerUnavailable counts one fully exhausted read.
func RecordLedgerUnavailable() { defaultManager.ledgerUnavailable.Inc() }

// RecordCacheHit counts a fresh hit for the given entry kind.
func RecordCacheHit(kind string) { defaultManager.cacheHits.WithLabelValues(kind).Inc() }

// RecordCacheMiss counts a miss for the given entry kind.
func RecordCacheMiss(kind string) { defaultManager.cacheMisses.WithLabelValues(kind).Inc() }

// RecordCacheStaleServe counts a stale entry served as fallback.
func RecordCacheStaleServe(kind string) { defaultManager.cacheStaleServes.WithLabelValues(kind).Inc() }

// RecordCacheInvalidation counts one explicit invalidation.
func RecordCacheInvalidation() { defaultManager.cacheInvalidations.Inc() }

// RecordRateLimited counts one suppressed upstream read.
func RecordRateLimited(op string) { defaultManager.rateLimited.WithLabelValues(op).Inc() }

// RecordEpochTransition counts one transition step outcome.
func RecordEpochTransition(step, outcome string) {
	defaultManager.epochTransitions.WithLabelValues(step, outcome).Inc()
}

// UpdateEvalQueueDepth sets the current evaluation queue depth.
func UpdateEvalQueueDepth(n int) { defaultManager.evalQueueDepth.Set(float64(n)) }

// UpdateEvalQueueCapacity sets the evaluation queue capacity.
func UpdateEvalQueueCapacity(n int) { defaultManager.evalQueueCapacity.Set(float64(n)) }

// RecordEvalEnqueueError counts one rejected evaluation submission.
func RecordEvalEnqueueError() { defaultManager.evalEnqueueErrors.Inc() }

// RecordEvalProcessed counts one evaluated interaction.
func RecordEvalProcessed() { defaultManager.evalProcessed.Inc() }

// RecordEvalError counts one failed evaluation attempt.
func RecordEvalError() { defaultManager.evalErrors.Inc() }

// RecordEvalLatency observes one end-to-end evaluation duration.
func RecordEvalLatency(ms float64) { defaultManager.evalLatency.Observe(ms) }

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(n int) { defaultManager.workerActive.Set(float64(n)) }

// RecordHTTPRequest counts one served HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	defaultManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	defaultManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) { defaultManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the live goroutine count.
func UpdateSystemGoroutineCount(n int) { defaultManager.systemGoroutineCount.Set(float64(n)) }

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(ms float64) { defaultManager.systemGCPause.Observe(ms) }

// GetRegistry exposes the default registry for promhttp.
func GetRegistry() *prometheus.Registry { return defaultManager.registry }
