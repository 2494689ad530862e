// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on flash_standalone_event_processor.py's log_failed_batch
// (SPEC_FULL.md §11 supplemented feature): every terminal batch failure is
// appended to a durable table, not just process logs, so an operator can
// audit which batches never produced events.

package extract

import (
	"context"
	"time"

	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/storage"
	"github.com/google/uuid"
)

// logFailedBatch records one terminal batch failure. It deliberately does
// not return an error to its caller on its own failure beyond logging,
// because a broken audit trail must never mask the original batch error
// that triggered it.
func logFailedBatch(ctx context.Context, gw *storage.Gateway, batchID, pipelineRunID string, postCount int, reason string) {
	err := gw.WithRetry(ctx, "insert:batch_failures", func(ctx context.Context) error {
		_, execErr := gw.DB().ExecContext(ctx, `
			INSERT INTO batch_failures (id, batch_id, pipeline_run_id, post_count, reason, failed_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), batchID, pipelineRunID, postCount, reason, time.Now().UTC())
		return execErr
	})
	if err != nil {
		logging.LoggerFromContext(ctx).Error().Err(err).Str("batch_id", batchID).Msg("failed to record batch failure")
	}
}
