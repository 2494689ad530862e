// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package dedup

import (
	"context"

	"github.com/civictrace/pipeline/internal/llm"
	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/metrics"
	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// Engine drives one pass of the Deduplicator over a slice of pre-computed
// DuplicateGroup rows (spec.md §4.G).
type Engine struct {
	GW     *storage.Gateway
	Client llm.Client
	// DryRun, when true, plans and logs every merge without writing
	// anything (spec.md §4.G: "strict dry-run mode").
	DryRun bool
}

// NewEngine builds an Engine bound to gw and an LLM client shared across
// groups (no per-group API key rotation; the Worker Pool's key manager is
// specific to the Extraction Engine).
func NewEngine(gw *storage.Gateway, client llm.Client, dryRun bool) *Engine {
	return &Engine{GW: gw, Client: client, DryRun: dryRun}
}

// ProcessGroup analyzes and merges one DuplicateGroup, returning the number
// of duplicate events actually folded into a master. Failure semantics:
// merges are per-pair; a pair whose merge fails is logged and skipped, the
// rest of the group still proceeds (spec.md §4.G).
func (e *Engine) ProcessGroup(ctx context.Context, group models.DuplicateGroup) (int, error) {
	log := logging.LoggerFromContext(ctx).With().Str("group_id", group.GroupID).Logger()

	events, err := loadEventDetails(ctx, e.GW, group.EventIDs)
	if err != nil {
		return 0, err
	}
	if len(events) < 2 {
		return 0, nil
	}

	decisions, err := analyzeGroup(ctx, e.Client, group, events)
	metrics.DedupLLMCallsTotal.Inc()
	if err != nil {
		return 0, err
	}
	if len(decisions) == 0 {
		log.Debug().Msg("no duplicates confirmed by model")
		return 0, nil
	}

	merged := 0
	for _, d := range decisions {
		for _, dupID := range d.DuplicateEventIDs {
			if dupID == d.MasterEventID {
				continue
			}
			plog := log.With().Str("master_event_id", d.MasterEventID).Str("duplicate_event_id", dupID).Logger()

			if e.DryRun {
				plog.Info().Str("reasoning", d.Reasoning).Msg("[dry run] would merge duplicate into master")
				metrics.RecordDedupMerge(true)
				merged++
				continue
			}

			if err := mergePair(ctx, e.GW, d.MasterEventID, dupID, false); err != nil {
				plog.Error().Err(err).Msg("merge failed, skipping pair")
				metrics.RecordDedupMerge(false)
				continue
			}
			plog.Info().Msg("merged duplicate into master")
			metrics.RecordDedupMerge(true)
			merged++
		}
	}

	return merged, nil
}

// ProcessGroups runs ProcessGroup over every group in order, accumulating
// the total merge count. A group whose analysis errors is logged and
// skipped rather than aborting the whole run.
func (e *Engine) ProcessGroups(ctx context.Context, groups []models.DuplicateGroup) (int, error) {
	log := logging.LoggerFromContext(ctx)
	total := 0
	for _, g := range groups {
		n, err := e.ProcessGroup(ctx, g)
		if err != nil {
			log.Error().Err(err).Str("group_id", g.GroupID).Msg("group processing failed, skipping")
			continue
		}
		total += n
	}
	return total, nil
}
