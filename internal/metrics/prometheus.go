package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the MLB ingestion pipeline

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlb_api_calls_total",
			Help: "Total number of MLB Stats API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mlb_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlb_api_retries_total",
			Help: "Total number of retried API attempts",
		},
		[]string{"endpoint"},
	)

	// Database metrics
	DBWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlb_db_writes_total",
			Help: "Total number of batched database writes",
		},
		[]string{"table", "status"},
	)

	DBWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mlb_db_write_duration_seconds",
			Help:    "Duration of batched database writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mlb_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mlb_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mlb_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mlb_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// Load metrics
	RowsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlb_rows_upserted_total",
			Help: "Total number of rows written by the loader",
		},
		[]string{"table"},
	)

	RowsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlb_rows_skipped_total",
			Help: "Total number of rows skipped, rejected or merged before writing",
		},
		[]string{"table", "reason"},
	)

	UnknownStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlb_unknown_status_total",
			Help: "Game statuses that matched no known rank family",
		},
		[]string{"status"},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlb_sync_operations_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mlb_sync_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	LastSuccessfulSync = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mlb_last_successful_sync_timestamp",
			Help: "Timestamp of last successful pipeline run",
		},
		[]string{"type"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mlb_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mlb_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordAPIRetry records a retried attempt
func RecordAPIRetry(endpoint string) {
	APIRetriesTotal.WithLabelValues(endpoint).Inc()
}

// RecordDBWrite records a batched write
func RecordDBWrite(table, status string, duration float64) {
	DBWritesTotal.WithLabelValues(table, status).Inc()
	DBWriteDuration.WithLabelValues(table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordUpserted adds written rows for a table
func RecordUpserted(table string, n int) {
	RowsUpsertedTotal.WithLabelValues(table).Add(float64(n))
}

// RecordSkipped adds skipped rows for a table and reason
func RecordSkipped(table, reason string, n int) {
	if n <= 0 {
		return
	}
	RowsSkippedTotal.WithLabelValues(table, reason).Add(float64(n))
}

// RecordUnknownStatus counts a status string outside the rank table
func RecordUnknownStatus(status string) {
	UnknownStatusTotal.WithLabelValues(status).Inc()
}

// RecordSync records a pipeline run
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.WithLabelValues(syncType).SetToCurrentTime()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
