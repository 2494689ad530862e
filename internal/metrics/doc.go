// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package metrics provides Prometheus metrics collection and export for
observability across the pipeline's components.

# Overview

The package provides metrics for:
  - Storage Gateway: DuckDB query performance, DB_RPS rate-limit waits,
    object store upload latency
  - Ingestion Normalizer: posts read/normalized/rejected, resume offsets
  - Media Fetcher: download duration and errors, concurrent downloads
  - Batch Builder: batches built per strategy, batch size, estimated tokens
  - Worker Pool & Key Manager: per-worker cooldown waits, request counts,
    failed batches
  - Extraction Engine: extraction duration, tool calls, events persisted
  - Deduplicator: comparisons, merges, LLM adjudication calls
  - Geocode backfill: lookup outcomes and latency
  - Pipeline Orchestrator: per-stage duration, failures, run outcomes
  - Circuit breaker state, poison queue depth, NATS throughput

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:3857/metrics

# Usage Example

	import (
	    "github.com/civictrace/pipeline/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())

	    start := time.Now()
	    err := gw.UpsertEvent(ctx, event)
	    metrics.RecordDBQuery("upsert", "events", time.Since(start), err)
	}

# Prometheus Configuration

	scrape_configs:
	  - job_name: 'civictrace-pipeline'
	    static_configs:
	      - targets: ['localhost:3857']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

# Thread Safety

All metric recording functions are thread-safe; the Prometheus client
library handles synchronization internally.

# Cardinality Management

Worker-pool metrics are labeled by worker_id, which is bounded by
LLM.MaxWorkers (config.go) — a small, fixed cardinality. Stage metrics
are labeled by a fixed set of stage names, never by run ID.

# See Also

  - internal/workerpool: per-worker cooldown and request metrics
  - internal/storage: DB query and rate-limit metrics
*/
package metrics
