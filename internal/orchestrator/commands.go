// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on PIPELINE_STEPS in pipeline_worker.py: each stage maps to one
// fixed executable invocation. spec.md §1 treats the Twitter/Instagram
// scrapers as external collaborators ("producers of raw record files"), so
// those four stages resolve to an operator-configured external path rather
// than a cmd/ binary this module owns; the remaining five stages map to this
// module's own cmd/ binaries.
package orchestrator

import (
	"path/filepath"

	"github.com/civictrace/pipeline/internal/models"
)

// ownedStageBinaries names the cmd/ binary this module builds for each
// in-scope stage.
var ownedStageBinaries = map[models.StageName]string{
	models.StagePostProcess:        "ingest",
	models.StageImageDownload:      "mediafetch",
	models.StageEventProcess:       "extract",
	models.StageEventDedup:         "dedup",
	models.StageCoordinateBackfill: "backfill",
}

// ExternalStages lists the stages spec.md §1 scopes out as external
// collaborators: their executables are supplied by deployment configuration,
// not built here.
var ExternalStages = []models.StageName{
	models.StageTwitterScrape,
	models.StageInstagramScrape,
	models.StageTwitterProfileScrape,
	models.StageInstagramProfileScrape,
}

// DefaultCommands resolves in-scope stages to "<binDir>/<binary> --run-id
// <id>" and external stages to externalPaths[stage] (already split into
// argv, e.g. ["python3", "/opt/scrapers/twitter_scraper.py"]). A stage with
// no owned binary and no configured external path resolves to nil, which
// runStage reports as a failed step rather than silently skipping it.
func DefaultCommands(binDir string, externalPaths map[models.StageName][]string) CommandResolver {
	return func(run *models.PipelineRun, stage models.StageName) []string {
		if name, ok := ownedStageBinaries[stage]; ok {
			return []string{filepath.Join(binDir, name), "--run-id", run.ID}
		}
		if argv, ok := externalPaths[stage]; ok && len(argv) > 0 {
			return append(append([]string{}, argv...), "--run-id", run.ID)
		}
		return nil
	}
}
