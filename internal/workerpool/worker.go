// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package workerpool

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/civictrace/pipeline/internal/cache"
	"github.com/civictrace/pipeline/internal/metrics"
)

// requestWindowSize and requestWindowBuckets bound a rolling view of each
// worker's request rate, independent of the cumulative requestsMade
// counter — used for the end-of-run "requests in the last minute" figure
// rather than for any rate-limiting decision (the Cooldown already does
// that).
const (
	requestWindowSize    = time.Minute
	requestWindowBuckets = 12
)

// Extractor runs one batch through the Extraction Engine's tool-calling
// loop and returns the number of events it persisted. Implemented by
// internal/extract; declared here so workerpool has no import on it.
type Extractor interface {
	ProcessBatch(ctx context.Context, job *BatchJob, apiKey string) (eventsPersisted int, err error)
}

// CancelPredicate reports whether a pipeline run has been canceled. It is
// polled before each batch dispatch and before each retry within a worker
// (spec.md §4.E Cancellation).
type CancelPredicate func(ctx context.Context, pipelineRunID string) (bool, error)

// Worker holds one LLM API key, its cooldown state, and its in-flight
// counters — the worker state tuple from spec.md §4.E
// (worker_id, api_key, model_handle, requests_made, last_request_time).
// Worker implements suture.Service so a panic or returned error triggers a
// supervised restart rather than killing the whole pool.
type Worker struct {
	ID              int
	APIKey          string
	Cooldown        time.Duration
	StaggerDelay    time.Duration
	Extractor       Extractor
	Subscriber      *Subscriber
	ResultPublisher *Publisher
	CancelCheck     CancelPredicate
	Logger          watermill.LoggerAdapter

	mu              sync.Mutex
	requestsMade    int64
	lastRequestTime time.Time
	requestWindow   *cache.SlidingWindowCounter
}

// String implements fmt.Stringer so suture can identify the service in logs.
func (w *Worker) String() string {
	return fmt.Sprintf("extraction-worker-%d", w.ID)
}

// Serve implements suture.Service. It waits out the worker's staggered
// startup delay, then pulls batches off BatchTopic until ctx is canceled.
func (w *Worker) Serve(ctx context.Context) error {
	if w.StaggerDelay > 0 {
		select {
		case <-time.After(w.StaggerDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	handler := w.Subscriber.NewBatchHandler(BatchTopic).Handle(w.processBatch)
	return handler.Run(ctx)
}

func (w *Worker) processBatch(ctx context.Context, job *BatchJob) error {
	if w.CancelCheck != nil {
		canceled, err := w.CancelCheck(ctx, job.PipelineRunID)
		if err == nil && canceled {
			// Leave the batch un-acked territory to the caller's retry
			// policy; posts inside it simply are not marked processed.
			return fmt.Errorf("pipeline run %s canceled, skipping batch %s", job.PipelineRunID, job.BatchID)
		}
	}

	w.waitCooldown()

	result := &BatchResult{
		BatchID:    job.BatchID,
		WorkerID:   w.ID,
		FinishedAt: time.Now(),
	}

	persisted, err := w.Extractor.ProcessBatch(ctx, job, w.APIKey)
	result.EventsPersisted = persisted
	result.PostsProcessed = len(job.Posts)
	if err != nil {
		result.Err = err.Error()
	}
	workerIDStr := fmt.Sprintf("%d", w.ID)
	metrics.RecordWorkerRequest(workerIDStr, err != nil)

	if w.ResultPublisher != nil {
		data, serErr := SerializeResult(result)
		if serErr == nil {
			msg := message.NewMessage(uuid.NewString(), data)
			_ = w.ResultPublisher.Publish(ctx, ResultTopic, msg)
		}
	}

	return err
}

// waitCooldown sleeps the remaining cooldown interval if the worker's last
// request was too recent (spec.md §4.E rate limit policy).
func (w *Worker) waitCooldown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := time.Since(w.lastRequestTime)
	if !w.lastRequestTime.IsZero() && elapsed < w.Cooldown {
		wait := w.Cooldown - elapsed
		time.Sleep(wait)
		metrics.RecordWorkerCooldownWait(fmt.Sprintf("%d", w.ID), wait)
	}
	w.lastRequestTime = time.Now()
	w.requestsMade++
	if w.requestWindow == nil {
		w.requestWindow = cache.NewSlidingWindowCounter(requestWindowSize, requestWindowBuckets)
	}
	w.requestWindow.Increment(1)
}

// RequestsMade returns how many LLM calls this worker has issued.
func (w *Worker) RequestsMade() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requestsMade
}

// RequestsInLastMinute returns this worker's request count within the
// trailing requestWindowSize window.
func (w *Worker) RequestsInLastMinute() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.requestWindow == nil {
		return 0
	}
	return w.requestWindow.Count()
}

// StaggerDelays returns the staggered-startup delay for each worker index:
// worker 0 starts immediately, every subsequent worker is delayed by a
// random interval in [30s, 90s] (spec.md §4.E Staggered startup).
func StaggerDelays(workerCount int) []time.Duration {
	delays := make([]time.Duration, workerCount)
	for i := range delays {
		if i == 0 {
			continue
		}
		delays[i] = 30*time.Second + time.Duration(rand.Int63n(int64(60*time.Second)))
	}
	return delays
}
