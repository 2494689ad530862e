// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on run_step in pipeline_worker.py: launch the stage as a
// subprocess.Popen, stream stdout line by line, and keep only the last
// LOG_LINE_LIMIT lines for the durable record.
package orchestrator

import (
	"bufio"
	"context"
	"os/exec"
	"time"

	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/models"
)

// CommandResolver returns the argv for one stage of one run. cmd/orchestrator
// wires this to the real per-stage binaries; tests can stub it.
type CommandResolver func(run *models.PipelineRun, stage models.StageName) []string

// runStage launches argv as an isolated child process, streams its combined
// stdout/stderr into a bounded ring buffer, and waits for exit.
func runStage(ctx context.Context, argv []string) *models.StepState {
	log := logging.LoggerFromContext(ctx)
	start := time.Now()
	state := &models.StepState{Status: models.StepRunning}
	t := start
	state.StartedAt = &t

	if len(argv) == 0 {
		state.Status = models.StepFailed
		state.ReturnCode = -1
		state.LogTail = []string{"no command configured for stage"}
		finish(state, start)
		return state
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		state.Status = models.StepFailed
		state.ReturnCode = -1
		state.LogTail = []string{err.Error()}
		finish(state, start)
		return state
	}
	cmd.Stderr = cmd.Stdout

	tail := newRingBuffer(logTailLimit)

	if err := cmd.Start(); err != nil {
		state.Status = models.StepFailed
		state.ReturnCode = -1
		state.LogTail = []string{err.Error()}
		finish(state, start)
		return state
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		tail.Append(line)
		log.Debug().Str("stage_output", line).Msg("stage output")
	}

	waitErr := cmd.Wait()
	state.LogTail = tail.Lines()
	state.ReturnCode = cmd.ProcessState.ExitCode()

	if waitErr != nil || state.ReturnCode != 0 {
		state.Status = models.StepFailed
	} else {
		state.Status = models.StepCompleted
	}
	finish(state, start)
	return state
}

func finish(state *models.StepState, start time.Time) {
	end := time.Now()
	state.CompletedAt = &end
	state.DurationSeconds = end.Sub(start).Seconds()
}
