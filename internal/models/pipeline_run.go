// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// PipelineRunStatus is the lifecycle state of a PipelineRun.
type PipelineRunStatus string

const (
	RunQueued    PipelineRunStatus = "queued"
	RunRunning   PipelineRunStatus = "running"
	RunSucceeded PipelineRunStatus = "succeeded"
	RunFailed    PipelineRunStatus = "failed"
	RunCancelled PipelineRunStatus = "cancelled"
)

// StepStatus is the lifecycle state of a single pipeline stage within a run.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepSkipped   StepStatus = "skipped"
	StepFailed    StepStatus = "failed"
)

// StageName enumerates the fixed stage sequence from spec.md §4.H.
type StageName string

const (
	StageTwitterScrape           StageName = "twitter_scrape"
	StageInstagramScrape         StageName = "instagram_scrape"
	StagePostProcess             StageName = "post_process"
	StageImageDownload           StageName = "image_download"
	StageEventProcess            StageName = "event_process"
	StageEventDedup              StageName = "event_dedup"
	StageTwitterProfileScrape    StageName = "twitter_profile_scrape"
	StageInstagramProfileScrape  StageName = "instagram_profile_scrape"
	StageCoordinateBackfill      StageName = "coordinate_backfill"
)

// StageSequence is the fixed, ordered stage list executed by the
// orchestrator for every run.
var StageSequence = []StageName{
	StageTwitterScrape,
	StageInstagramScrape,
	StagePostProcess,
	StageImageDownload,
	StageEventProcess,
	StageEventDedup,
	StageTwitterProfileScrape,
	StageInstagramProfileScrape,
	StageCoordinateBackfill,
}

// OptionalStages are skipped rather than failed when their corresponding run
// flag is off.
var OptionalStages = map[StageName]bool{
	StageInstagramScrape:        true,
	StageInstagramProfileScrape: true,
}

// StepState is the durable per-stage record the orchestrator maintains on a
// PipelineRun: status, timing, exit code and a bounded log tail.
type StepState struct {
	Status          StepStatus
	StartedAt       *time.Time
	CompletedAt     *time.Time
	DurationSeconds float64
	ReturnCode      int
	LogTail         []string
}

// PipelineRun is a durable record of one end-to-end pipeline invocation.
type PipelineRun struct {
	ID               string
	Status           PipelineRunStatus
	IncludeInstagram bool
	StepStates       map[StageName]*StepState
	CurrentStep      StageName
	StartedAt        *time.Time
	CompletedAt      *time.Time
	ErrorMessage     string
}

// NewPipelineRun creates a queued run with every stage pre-seeded as pending.
func NewPipelineRun(id string, includeInstagram bool) *PipelineRun {
	states := make(map[StageName]*StepState, len(StageSequence))
	for _, s := range StageSequence {
		states[s] = &StepState{Status: StepPending}
	}
	return &PipelineRun{
		ID:               id,
		Status:           RunQueued,
		IncludeInstagram: includeInstagram,
		StepStates:       states,
	}
}
