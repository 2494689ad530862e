// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics for the Pipeline
// This package instruments the pipeline's components:
// - Storage Gateway (DuckDB queries, object store uploads, rate limiting)
// - Ingestion Normalizer
// - Media Fetcher
// - Batch Builder
// - Worker Pool & Key Manager
// - Extraction Engine
// - Deduplicator
// - Pipeline Orchestrator

var (
	// Storage Gateway Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	DBConnectionPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_connection_pool_size",
			Help: "Current number of database connections in use",
		},
	)

	DBRateLimitWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_rate_limit_wait_seconds",
			Help:    "Time spent waiting on the Storage Gateway's DB_RPS token bucket",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	ObjectStoreUploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "object_store_upload_duration_seconds",
			Help:    "Duration of object store uploads in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"content_type"},
	)

	ObjectStoreUploadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "object_store_upload_errors_total",
			Help: "Total number of object store upload errors",
		},
	)

	// Ingestion Normalizer Metrics
	IngestPostsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_posts_read_total",
			Help: "Total number of raw posts read from source files",
		},
		[]string{"source_format"}, // "csv", "json"
	)

	IngestPostsNormalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_posts_normalized_total",
			Help: "Total number of posts successfully normalized and persisted",
		},
	)

	IngestPostsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_posts_rejected_total",
			Help: "Total number of posts rejected during normalization",
		},
		[]string{"reason"}, // "missing_handle", "missing_timestamp", "duplicate", "invalid_platform"
	)

	IngestResumeOffset = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ingest_resume_offset_bytes",
			Help: "Last durably-checkpointed byte offset per source file",
		},
		[]string{"source_file"},
	)

	// Media Fetcher Metrics
	MediaDownloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_download_duration_seconds",
			Help:    "Duration of media downloads in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	MediaDownloadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_download_errors_total",
			Help: "Total number of media download errors",
		},
		[]string{"error_type"}, // "timeout", "not_found", "server_error"
	)

	MediaUploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_uploads_total",
			Help: "Total number of media files uploaded to object storage",
		},
	)

	MediaConcurrentDownloads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_concurrent_downloads",
			Help: "Current number of in-flight media downloads",
		},
	)

	// Batch Builder Metrics
	BatchesBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batches_built_total",
			Help: "Total number of batches built",
		},
		[]string{"strategy"}, // "token_optimized", "date_clustered", "chronological"
	)

	BatchSizePosts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_size_posts",
			Help:    "Number of posts per built batch",
			Buckets: []float64{1, 5, 10, 25, 50, 75, 100, 150},
		},
	)

	BatchEstimatedTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_estimated_tokens",
			Help:    "Estimated token count per built batch",
			Buckets: []float64{10_000, 50_000, 100_000, 150_000, 200_000},
		},
	)

	// Worker Pool & Key Manager Metrics
	WorkerCooldownWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_cooldown_wait_seconds",
			Help:    "Time a worker slept to respect its API key cooldown",
			Buckets: []float64{0, 1, 5, 10, 30, 60},
		},
		[]string{"worker_id"},
	)

	WorkerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_requests_total",
			Help: "Total number of LLM requests issued by each worker",
		},
		[]string{"worker_id"},
	)

	WorkerBatchesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_batches_failed_total",
			Help: "Total number of batches a worker failed to process",
		},
		[]string{"worker_id"},
	)

	// Extraction Engine Metrics
	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Duration of one batch's tool-calling extraction loop",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	ExtractionToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_tool_calls_total",
			Help: "Total number of LLM tool calls made during extraction",
		},
		[]string{"tool"}, // "search_actors", "link_actor", "emit_event"
	)

	ExtractionEventsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_events_persisted_total",
			Help: "Total number of events persisted from extraction",
		},
	)

	ExtractionRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_retries_total",
			Help: "Total number of batch extraction retries after a transient failure",
		},
	)

	// Deduplicator Metrics
	DedupComparisons = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_comparisons_total",
			Help: "Total number of candidate-pair comparisons evaluated",
		},
	)

	DedupMerges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_merges_total",
			Help: "Total number of duplicate events merged",
		},
	)

	DedupLLMCallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_llm_calls_total",
			Help: "Total number of LLM calls made to adjudicate ambiguous candidate pairs",
		},
	)

	// Geocode Metrics
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_lookups_total",
			Help: "Total number of coordinate backfill lookups",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	GeocodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geocode_lookup_duration_seconds",
			Help:    "Duration of geocoding API calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Pipeline Orchestrator Metrics
	OrchestratorStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestrator_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600},
		},
		[]string{"stage"}, // "ingest", "media", "batch", "extract", "dedup", "geocode"
	)

	OrchestratorStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_stage_failures_total",
			Help: "Total number of failed pipeline stage runs",
		},
		[]string{"stage"},
	)

	OrchestratorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_runs_total",
			Help: "Total number of pipeline runs by terminal state",
		},
		[]string{"state"}, // "completed", "failed", "canceled"
	)

	// Circuit Breaker Metrics (shared by Storage Gateway and Worker Pool publishers)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through a circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// Dead Letter Queue Metrics
	DLQEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dlq_entries_total",
			Help: "Current number of entries in the poison queue",
		},
	)

	DLQMessagesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dlq_messages_added_total",
			Help: "Total number of batches moved to the poison queue",
		},
	)

	// NATS Messaging Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of messages published to NATS",
		},
	)

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Total number of messages consumed from NATS",
		},
	)

	NATSConsumerLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nats_consumer_lag",
			Help: "Number of pending messages in the batch queue's NATS consumer",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a Storage Gateway query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordDBRateLimitWait records time spent waiting on the DB_RPS token bucket.
func RecordDBRateLimitWait(wait time.Duration) {
	DBRateLimitWaitSeconds.Observe(wait.Seconds())
}

// RecordObjectStoreUpload records an object store upload.
func RecordObjectStoreUpload(contentType string, duration time.Duration, err error) {
	ObjectStoreUploadDuration.WithLabelValues(contentType).Observe(duration.Seconds())
	if err != nil {
		ObjectStoreUploadErrors.Inc()
	}
}

// RecordIngestPost records the outcome of normalizing one raw post.
func RecordIngestPost(sourceFormat string, accepted bool, rejectReason string) {
	IngestPostsRead.WithLabelValues(sourceFormat).Inc()
	if accepted {
		IngestPostsNormalized.Inc()
		return
	}
	IngestPostsRejected.WithLabelValues(rejectReason).Inc()
}

// UpdateIngestResumeOffset records the latest durable checkpoint for a source file.
func UpdateIngestResumeOffset(sourceFile string, offset int64) {
	IngestResumeOffset.WithLabelValues(sourceFile).Set(float64(offset))
}

// RecordMediaDownload records a media download attempt.
func RecordMediaDownload(duration time.Duration, errType string) {
	MediaDownloadDuration.Observe(duration.Seconds())
	if errType != "" {
		MediaDownloadErrors.WithLabelValues(errType).Inc()
	}
}

// RecordBatchBuilt records a batch emitted by a batch-building strategy.
func RecordBatchBuilt(strategy string, posts int, estimatedTokens int) {
	BatchesBuilt.WithLabelValues(strategy).Inc()
	BatchSizePosts.Observe(float64(posts))
	BatchEstimatedTokens.Observe(float64(estimatedTokens))
}

// RecordWorkerCooldownWait records time a worker slept to respect its cooldown.
func RecordWorkerCooldownWait(workerID string, wait time.Duration) {
	WorkerCooldownWaitSeconds.WithLabelValues(workerID).Observe(wait.Seconds())
}

// RecordWorkerRequest records an LLM request issued by a worker, and whether
// the batch it processed ultimately failed.
func RecordWorkerRequest(workerID string, failed bool) {
	WorkerRequestsTotal.WithLabelValues(workerID).Inc()
	if failed {
		WorkerBatchesFailed.WithLabelValues(workerID).Inc()
	}
}

// RecordExtraction records one batch's extraction loop outcome.
func RecordExtraction(duration time.Duration, eventsPersisted int) {
	ExtractionDuration.Observe(duration.Seconds())
	ExtractionEventsPersisted.Add(float64(eventsPersisted))
}

// RecordToolCall records one LLM tool invocation during extraction.
func RecordToolCall(tool string) {
	ExtractionToolCalls.WithLabelValues(tool).Inc()
}

// RecordDedupMerge records a pairwise dedup comparison and its outcome.
func RecordDedupMerge(merged bool) {
	DedupComparisons.Inc()
	if merged {
		DedupMerges.Inc()
	}
}

// RecordGeocodeLookup records the outcome of a coordinate backfill lookup.
func RecordGeocodeLookup(result string, duration time.Duration) {
	GeocodeLookups.WithLabelValues(result).Inc()
	GeocodeDuration.Observe(duration.Seconds())
}

// RecordOrchestratorStage records the duration and outcome of one pipeline stage.
func RecordOrchestratorStage(stage string, duration time.Duration, err error) {
	OrchestratorStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		OrchestratorStageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordOrchestratorRun records the terminal state of a full pipeline run.
func RecordOrchestratorRun(state string) {
	OrchestratorRunsTotal.WithLabelValues(state).Inc()
}

// RecordDLQEntry records a batch being moved to the poison queue.
func RecordDLQEntry() {
	DLQMessagesAdded.Inc()
	DLQEntriesTotal.Inc()
}

// RecordNATSPublish records a message being published to NATS.
func RecordNATSPublish() {
	NATSMessagesPublished.Inc()
}

// RecordNATSConsume records a message being consumed from NATS.
func RecordNATSConsume() {
	NATSMessagesConsumed.Inc()
}

// UpdateNATSConsumerLag updates the NATS consumer lag gauge.
func UpdateNATSConsumerLag(lag int64) {
	NATSConsumerLag.Set(float64(lag))
}
