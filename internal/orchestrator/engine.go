// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on pipeline_worker.py's fetch_next_run/process_run/main poll
// loop: pick the oldest eligible run, walk the fixed stage sequence with
// skip/resume semantics, and sleep POLL_SECONDS between polls when nothing
// is eligible.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/metrics"
	"github.com/civictrace/pipeline/internal/models"
)

// Orchestrator drives the Pipeline Orchestrator (spec.md §4.H).
type Orchestrator struct {
	Store    *RunStore
	Mirror   *RunMirror
	Commands CommandResolver
	// PollInterval is POLL_SECONDS: how long to sleep when no run is
	// eligible.
	PollInterval time.Duration

	stopAfterCurrent atomic.Bool
}

// NewOrchestrator builds an Orchestrator polling store for eligible runs and
// resolving each stage's argv via commands.
func NewOrchestrator(store *RunStore, mirror *RunMirror, commands CommandResolver, pollInterval time.Duration) *Orchestrator {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Orchestrator{Store: store, Mirror: mirror, Commands: commands, PollInterval: pollInterval}
}

// RequestStop sets the stop_after_current flag: the orchestrator finishes
// the stage in flight, persists state, and returns instead of starting the
// next run. Call this from a SIGTERM/SIGINT handler (cmd/orchestrator).
func (o *Orchestrator) RequestStop() {
	o.stopAfterCurrent.Store(true)
}

// Run polls for eligible PipelineRun rows and drives each to completion,
// returning when the context is cancelled or RequestStop has been called and
// the current run (if any) finishes.
func (o *Orchestrator) Run(ctx context.Context) error {
	log := logging.LoggerFromContext(ctx)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if o.stopAfterCurrent.Load() {
			log.Info().Msg("stop requested, orchestrator exiting")
			return nil
		}

		run, err := o.nextRun(ctx)
		if err != nil {
			log.Error().Err(err).Msg("fetch next pipeline run failed")
			if !sleepOrDone(ctx, o.PollInterval) {
				return ctx.Err()
			}
			continue
		}
		if run == nil {
			if !sleepOrDone(ctx, o.PollInterval) {
				return ctx.Err()
			}
			continue
		}

		if err := o.processRun(ctx, run); err != nil {
			log.Error().Err(err).Str("run_id", run.ID).Msg("pipeline run processing error")
		}

		if o.stopAfterCurrent.Load() {
			log.Info().Msg("stop requested, orchestrator exiting after current run")
			return nil
		}
	}
}

// nextRun prefers the local mirror (a run left active by a crashed process)
// over a fresh poll of the relational store, so a restart resumes the exact
// in-flight run without racing another orchestrator instance for it.
func (o *Orchestrator) nextRun(ctx context.Context) (*models.PipelineRun, error) {
	if mirrored, err := o.Mirror.Load(ctx); err == nil && mirrored != nil && mirrored.Status == models.RunRunning {
		return mirrored, nil
	}
	return o.Store.FetchNext(ctx)
}

// processRun transitions run to running (if queued) and executes every
// not-yet-completed stage in order.
func (o *Orchestrator) processRun(ctx context.Context, run *models.PipelineRun) error {
	log := logging.LoggerFromContext(ctx).With().Str("run_id", run.ID).Logger()

	if run.Status == models.RunQueued {
		now := time.Now().UTC()
		run.Status = models.RunRunning
		run.StartedAt = &now
	}
	if run.StepStates == nil {
		run.StepStates = make(map[models.StageName]*models.StepState)
	}

	for _, stage := range models.StageSequence {
		state, ok := run.StepStates[stage]
		if !ok {
			state = &models.StepState{Status: models.StepPending}
			run.StepStates[stage] = state
		}

		if state.Status == models.StepCompleted {
			continue
		}
		if models.OptionalStages[stage] && !run.IncludeInstagram {
			state.Status = models.StepSkipped
			if err := o.persist(ctx, run); err != nil {
				return err
			}
			continue
		}

		run.CurrentStep = stage
		if err := o.persist(ctx, run); err != nil {
			return err
		}

		log.Info().Str("stage", string(stage)).Msg("running pipeline stage")
		argv := o.Commands(run, stage)
		result := runStage(ctx, argv)
		run.StepStates[stage] = result

		var stageErr error
		if result.Status == models.StepFailed {
			stageErr = fmt.Errorf("stage %s exited with code %d", stage, result.ReturnCode)
		}
		metrics.RecordOrchestratorStage(string(stage), time.Duration(result.DurationSeconds*float64(time.Second)), stageErr)

		if result.Status == models.StepFailed {
			now := time.Now().UTC()
			run.Status = models.RunFailed
			run.CompletedAt = &now
			run.ErrorMessage = "stage " + string(stage) + " failed"
			log.Error().Str("stage", string(stage)).Int("return_code", result.ReturnCode).Msg("pipeline stage failed")
			metrics.RecordOrchestratorRun(string(models.RunFailed))
			return o.persist(ctx, run)
		}

		log.Info().Str("stage", string(stage)).Dur("duration", time.Duration(result.DurationSeconds*float64(time.Second))).Msg("pipeline stage complete")

		if o.stopAfterCurrent.Load() {
			return o.persist(ctx, run)
		}
	}

	now := time.Now().UTC()
	run.Status = models.RunSucceeded
	run.CompletedAt = &now
	metrics.RecordOrchestratorRun(string(models.RunSucceeded))
	if err := o.persist(ctx, run); err != nil {
		return err
	}
	return o.Mirror.Clear(ctx)
}

// persist writes run to both the relational store and the local mirror so a
// crash between the two still has one authoritative copy to resume from.
func (o *Orchestrator) persist(ctx context.Context, run *models.PipelineRun) error {
	if err := o.Store.Save(ctx, run); err != nil {
		return err
	}
	return o.Mirror.Save(ctx, run)
}

// sleepOrDone sleeps for d, returning false if ctx is cancelled first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
