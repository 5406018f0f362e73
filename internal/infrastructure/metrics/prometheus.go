// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vidshelf"

var (
	// CacheOperationsTotal tracks cache operations (get, set, delete).
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	//   - cache_type: redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// DBQueriesTotal tracks database queries.
	// Labels:
	//   - query_type: select, insert, update
	//   - table: quality_jobs
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// StorageOperationsTotal tracks object store calls.
	// Labels:
	//   - operation: upload, download, delete, stat, list, presign
	//   - result: success, error
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of object storage operations",
		},
		[]string{"operation", "result"},
	)

	// CatalogReadsTotal tracks catalog snapshot reads by freshness.
	// Labels:
	//   - freshness: fresh, stale, missing
	CatalogReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reads_total",
			Help:      "Total number of catalog snapshot reads",
		},
		[]string{"freshness"},
	)

	// CatalogRebuildDuration observes full catalog rebuilds.
	CatalogRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_rebuild_duration_seconds",
			Help:      "Duration of catalog snapshot rebuilds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// CatalogEntries is the number of entries in the last rebuilt snapshot.
	CatalogEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entries",
			Help:      "Number of videos in the last rebuilt catalog snapshot",
		},
	)

	// CatalogSkippedTotal counts users or records skipped during rebuild.
	// Labels:
	//   - reason: user_list, record_read, record_invalid
	CatalogSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_skipped_total",
			Help:      "Total number of users or records skipped during catalog rebuild",
		},
		[]string{"reason"},
	)

	// QualityJobsTotal tracks quality job outcomes.
	// Labels:
	//   - status: enqueued, done, retried, failed
	QualityJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_jobs_total",
			Help:      "Total number of quality transcoding jobs by outcome",
		},
		[]string{"status"},
	)

	// HTTPRequestsTotal tracks API requests.
	// Labels:
	//   - method, route, code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "code"},
	)

	// HTTPRequestDuration observes API latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Cache type constants.
const (
	CacheTypeRedis = "redis"
)

// DB query type constants.
const (
	DBQuerySelect = "select"
	DBQueryInsert = "insert"
	DBQueryUpdate = "update"
)

// Table name constants.
const (
	TableQualityJobs = "quality_jobs"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Storage operation constants.
const (
	StorageOpUpload   = "upload"
	StorageOpDownload = "download"
	StorageOpDelete   = "delete"
	StorageOpStat     = "stat"
	StorageOpList     = "list"
	StorageOpPresign  = "presign"
)

// Generic result constants.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Catalog freshness constants.
const (
	CatalogFresh   = "fresh"
	CatalogStale   = "stale"
	CatalogMissing = "missing"
)

// Catalog skip reasons.
const (
	SkipUserList      = "user_list"
	SkipRecordRead    = "record_read"
	SkipRecordInvalid = "record_invalid"
)

// Quality job outcome constants.
const (
	QualityJobEnqueued = "enqueued"
	QualityJobDone     = "done"
	QualityJobRetried  = "retried"
	QualityJobFailed   = "failed"
)
