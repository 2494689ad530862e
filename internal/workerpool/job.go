// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package workerpool

import (
	"fmt"
	"time"

	goccyjson "github.com/goccy/go-json"

	"github.com/civictrace/pipeline/internal/models"
)

// BatchJob is one unit of work dispatched onto BatchTopic: a time-windowed,
// token-budgeted slice of posts the Batch Builder produced (spec.md §4.D),
// ready for the Extraction Engine to run through its tool-calling loop.
type BatchJob struct {
	BatchID       string        `json:"batch_id"`
	Posts         []models.Post `json:"posts"`
	CreatedAt     time.Time     `json:"created_at"`
	EstimatedTokens int         `json:"estimated_tokens"`
	PipelineRunID string        `json:"pipeline_run_id"`
}

// BatchResult is published back once a worker finishes a batch, whether it
// succeeded or exhausted its retries.
type BatchResult struct {
	BatchID        string    `json:"batch_id"`
	WorkerID       int       `json:"worker_id"`
	EventsPersisted int      `json:"events_persisted"`
	PostsProcessed int       `json:"posts_processed"`
	Err            string    `json:"error,omitempty"`
	FinishedAt     time.Time `json:"finished_at"`
}

// SerializeJob marshals a BatchJob using goccy/go-json, matching the
// teacher's choice of go-json for its large event payloads.
func SerializeJob(job *BatchJob) ([]byte, error) {
	data, err := goccyjson.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal batch job: %w", err)
	}
	return data, nil
}

// DeserializeJob unmarshals a BatchJob.
func DeserializeJob(data []byte) (*BatchJob, error) {
	var job BatchJob
	if err := goccyjson.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal batch job: %w", err)
	}
	return &job, nil
}

// SerializeResult marshals a BatchResult.
func SerializeResult(result *BatchResult) ([]byte, error) {
	data, err := goccyjson.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal batch result: %w", err)
	}
	return data, nil
}

// DeserializeResult unmarshals a BatchResult.
func DeserializeResult(data []byte) (*BatchResult, error) {
	var result BatchResult
	if err := goccyjson.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal batch result: %w", err)
	}
	return &result, nil
}
