// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		duration  time.Duration
		err       error
	}{
		{"successful upsert", "upsert", "events", 10 * time.Millisecond, nil},
		{"successful select", "select", "posts", 5 * time.Millisecond, nil},
		{"failed query", "update", "actors", 100 * time.Millisecond, errors.New("connection refused")},
		{"fast query under 1ms", "select", "actor_links", 500 * time.Microsecond, nil},
		{"slow query over 5 seconds", "select", "events", 5500 * time.Millisecond, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordDBQuery(tt.operation, tt.table, tt.duration, tt.err)
		})
	}
}

func TestRecordDBRateLimitWait(t *testing.T) {
	waits := []time.Duration{0, time.Millisecond, 50 * time.Millisecond, time.Second}
	for _, w := range waits {
		RecordDBRateLimitWait(w)
	}
}

func TestRecordObjectStoreUpload(t *testing.T) {
	RecordObjectStoreUpload("image/jpeg", 200*time.Millisecond, nil)
	RecordObjectStoreUpload("image/png", 500*time.Millisecond, errors.New("timeout"))
}

func TestRecordIngestPost(t *testing.T) {
	RecordIngestPost("csv", true, "")
	RecordIngestPost("json", false, "missing_handle")
	RecordIngestPost("csv", false, "duplicate")
}

func TestUpdateIngestResumeOffset(t *testing.T) {
	UpdateIngestResumeOffset("posts_2026_01.csv", 1024)
	UpdateIngestResumeOffset("posts_2026_01.csv", 2048)
}

func TestRecordMediaDownload(t *testing.T) {
	RecordMediaDownload(100*time.Millisecond, "")
	RecordMediaDownload(5*time.Second, "timeout")
	RecordMediaDownload(10*time.Millisecond, "not_found")
}

func TestRecordBatchBuilt(t *testing.T) {
	strategies := []string{"token_optimized", "date_clustered", "chronological"}
	for _, s := range strategies {
		t.Run(s, func(t *testing.T) {
			RecordBatchBuilt(s, 75, 150_000)
		})
	}
}

func TestRecordWorkerCooldownWait(t *testing.T) {
	RecordWorkerCooldownWait("0", 0)
	RecordWorkerCooldownWait("1", 45*time.Second)
}

func TestRecordWorkerRequest(t *testing.T) {
	RecordWorkerRequest("0", false)
	RecordWorkerRequest("0", true)
}

func TestRecordExtraction(t *testing.T) {
	RecordExtraction(30*time.Second, 12)
	RecordExtraction(2*time.Minute, 0)
}

func TestRecordToolCall(t *testing.T) {
	tools := []string{"search_actors", "link_actor", "emit_event"}
	for _, tool := range tools {
		RecordToolCall(tool)
	}
}

func TestRecordDedupMerge(t *testing.T) {
	RecordDedupMerge(true)
	RecordDedupMerge(false)
}

func TestRecordGeocodeLookup(t *testing.T) {
	RecordGeocodeLookup("hit", 50*time.Millisecond)
	RecordGeocodeLookup("miss", 300*time.Millisecond)
	RecordGeocodeLookup("error", 10*time.Second)
}

func TestRecordOrchestratorStage(t *testing.T) {
	stages := []string{"ingest", "media", "batch", "extract", "dedup", "geocode"}
	for _, stage := range stages {
		t.Run(stage, func(t *testing.T) {
			RecordOrchestratorStage(stage, time.Minute, nil)
			RecordOrchestratorStage(stage, time.Second, errors.New("stage failed"))
		})
	}
}

func TestRecordOrchestratorRun(t *testing.T) {
	states := []string{"completed", "failed", "canceled"}
	for _, s := range states {
		RecordOrchestratorRun(s)
	}
}

func TestRecordDLQEntry(t *testing.T) {
	RecordDLQEntry()
	RecordDLQEntry()
}

func TestNATSMetrics(t *testing.T) {
	RecordNATSPublish()
	RecordNATSConsume()
	UpdateNATSConsumerLag(5)
}

func TestCircuitBreakerMetrics(t *testing.T) {
	cbName := "storage-gateway"
	CircuitBreakerState.WithLabelValues(cbName).Set(0)
	CircuitBreakerState.WithLabelValues(cbName).Set(2)
	CircuitBreakerRequests.WithLabelValues(cbName, "success").Inc()
	CircuitBreakerRequests.WithLabelValues(cbName, "rejected").Inc()
}

func TestAppMetrics(t *testing.T) {
	AppInfo.WithLabelValues("1.0", "go1.25.4").Set(1)
	AppUptime.Set(3600)
	AppUptime.Add(60)
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	numGoroutines := 100
	opsPerGoroutine := 50

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				RecordDBQuery("select", "events", time.Duration(j)*time.Millisecond, nil)
			}
		}()
	}

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			workerID := "0"
			if id%2 == 0 {
				workerID = "1"
			}
			for j := 0; j < opsPerGoroutine; j++ {
				RecordWorkerRequest(workerID, j%10 == 0)
			}
		}(i)
	}

	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		DBQueryDuration,
		DBQueryErrors,
		DBConnectionPoolSize,
		DBRateLimitWaitSeconds,
		ObjectStoreUploadDuration,
		ObjectStoreUploadErrors,
		IngestPostsRead,
		IngestPostsNormalized,
		IngestPostsRejected,
		IngestResumeOffset,
		MediaDownloadDuration,
		MediaDownloadErrors,
		MediaUploadsTotal,
		MediaConcurrentDownloads,
		BatchesBuilt,
		BatchSizePosts,
		BatchEstimatedTokens,
		WorkerCooldownWaitSeconds,
		WorkerRequestsTotal,
		WorkerBatchesFailed,
		ExtractionDuration,
		ExtractionToolCalls,
		ExtractionEventsPersisted,
		ExtractionRetries,
		DedupComparisons,
		DedupMerges,
		DedupLLMCallsTotal,
		GeocodeLookups,
		GeocodeDuration,
		OrchestratorStageDuration,
		OrchestratorStageFailures,
		OrchestratorRunsTotal,
		CircuitBreakerState,
		CircuitBreakerRequests,
		DLQEntriesTotal,
		DLQMessagesAdded,
		NATSMessagesPublished,
		NATSMessagesConsumed,
		NATSConsumerLag,
		AppInfo,
		AppUptime,
	}

	for _, m := range collectors {
		ch := make(chan *prometheus.Desc, 10)
		m.Describe(ch)
		close(ch)

		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("metric %T has no descriptors", m)
		}
	}
}

func TestMetricGathering(t *testing.T) {
	RecordDBQuery("select", "events", time.Millisecond, nil)
	RecordOrchestratorStage("ingest", time.Second, nil)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("metric lint problem: %s", p.Text)
	}
}

func BenchmarkRecordDBQuery(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordDBQuery("select", "events", 10*time.Millisecond, nil)
	}
}

func BenchmarkRecordWorkerRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordWorkerRequest("0", false)
	}
}

func BenchmarkRecordOrchestratorStage(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordOrchestratorStage("extract", time.Minute, nil)
	}
}
