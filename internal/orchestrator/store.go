// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on fetch_next_run/update_run_status in pipeline_worker.py: pick
// the oldest queued-or-running run, and persist step_states as one JSON blob
// per spec.md §3's PipelineRun shape.
package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// RunStore persists PipelineRun rows to the relational store.
type RunStore struct {
	gw *storage.Gateway
}

// NewRunStore wraps a Storage Gateway for PipelineRun persistence.
func NewRunStore(gw *storage.Gateway) *RunStore {
	return &RunStore{gw: gw}
}

// FetchNext returns the oldest queued or running PipelineRun, or nil if none
// is eligible.
func (s *RunStore) FetchNext(ctx context.Context) (*models.PipelineRun, error) {
	var run *models.PipelineRun
	err := s.gw.WithRetry(ctx, "orchestrator_fetch_next_run", func(ctx context.Context) error {
		row := s.gw.DB().QueryRowContext(ctx, `
			SELECT id, status, include_instagram, step_states, current_step,
			       started_at, completed_at, error_message
			FROM pipeline_runs
			WHERE status IN ('queued', 'running')
			ORDER BY created_at ASC
			LIMIT 1`)

		var (
			id, status                    string
			includeInstagram              bool
			stepStatesJSON                string
			currentStep                   sql.NullString
			startedAt, completedAt        sql.NullTime
			errMsg                        sql.NullString
		)
		err := row.Scan(&id, &status, &includeInstagram, &stepStatesJSON, &currentStep, &startedAt, &completedAt, &errMsg)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}

		states := make(map[models.StageName]*models.StepState)
		if err := json.Unmarshal([]byte(stepStatesJSON), &states); err != nil {
			return fmt.Errorf("decode step_states for run %s: %w", id, err)
		}

		run = &models.PipelineRun{
			ID:               id,
			Status:           models.PipelineRunStatus(status),
			IncludeInstagram: includeInstagram,
			StepStates:       states,
			CurrentStep:      models.StageName(currentStep.String),
		}
		if startedAt.Valid {
			t := startedAt.Time
			run.StartedAt = &t
		}
		if completedAt.Valid {
			t := completedAt.Time
			run.CompletedAt = &t
		}
		run.ErrorMessage = errMsg.String
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch next pipeline run: %w", err)
	}
	return run, nil
}

// Save writes the run's current status, step states, and timestamps back to
// the store. Called after every stage transition so a crash loses at most
// the in-flight step.
func (s *RunStore) Save(ctx context.Context, run *models.PipelineRun) error {
	stepStatesJSON, err := json.Marshal(run.StepStates)
	if err != nil {
		return fmt.Errorf("encode step_states for run %s: %w", run.ID, err)
	}

	return s.gw.WithRetry(ctx, "orchestrator_save_run", func(ctx context.Context) error {
		_, err := s.gw.DB().ExecContext(ctx, `
			UPDATE pipeline_runs
			SET status = ?, include_instagram = ?, step_states = ?, current_step = ?,
			    started_at = ?, completed_at = ?, error_message = ?, updated_at = ?
			WHERE id = ?`,
			string(run.Status), run.IncludeInstagram, string(stepStatesJSON), string(run.CurrentStep),
			run.StartedAt, run.CompletedAt, run.ErrorMessage, time.Now().UTC(),
			run.ID)
		return err
	})
}
