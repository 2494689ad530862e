// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on flash_standalone_event_processor.py's top-level
// process_batch entry point, reassembled here as Engine.ProcessBatch, the
// method internal/workerpool.Extractor requires.

package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/civictrace/pipeline/internal/llm"
	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
	"github.com/civictrace/pipeline/internal/workerpool"
)

// Engine implements workerpool.Extractor. One Engine is shared by every
// worker in the pool; each call supplies its own API key, so Engine caches
// one llm.Client per key rather than constructing a fresh genai.Client on
// every batch.
type Engine struct {
	GW       *storage.Gateway
	LLMCfg   llm.Config
	Embedder Embedder
	Slugs    *SlugCache

	mu      sync.Mutex
	clients map[string]llm.Client

	// newClient is overridable so tests can inject a fake llm.Client
	// instead of a real GenAIClient.
	newClient func(apiKey string) llm.Client
}

// NewEngine builds an Engine bound to gw, with the given LLM retry config
// and best-effort embedder (embedder may be nil).
func NewEngine(gw *storage.Gateway, llmCfg llm.Config, embedder Embedder) *Engine {
	return &Engine{
		GW:       gw,
		LLMCfg:   llmCfg,
		Embedder: embedder,
		Slugs:    NewSlugCache(),
		clients:  make(map[string]llm.Client),
	}
}

func (e *Engine) clientFor(apiKey string) llm.Client {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.clients[apiKey]; ok {
		return c
	}
	var c llm.Client
	if e.newClient != nil {
		c = e.newClient(apiKey)
	} else {
		c = llm.NewGenAIClient(apiKey, e.LLMCfg)
	}
	e.clients[apiKey] = c
	return c
}

// ProcessBatch implements workerpool.Extractor. It is the single entry
// point a pool worker calls per batch (spec.md §4.F.3-4.F.4).
func (e *Engine) ProcessBatch(ctx context.Context, job *workerpool.BatchJob, apiKey string) (int, error) {
	log := logging.LoggerFromContext(ctx).With().Str("batch_id", job.BatchID).Logger()

	if err := e.Slugs.Reload(ctx, e.GW); err != nil {
		log.Warn().Err(err).Msg("slug cache reload failed, continuing with stale cache")
	}

	uuidByExt := make(map[string]string, len(job.Posts))
	validPostUUIDs := make(map[string]struct{}, len(job.Posts))
	for _, p := range job.Posts {
		uuidByExt[p.ExternalPostID] = p.ID
		validPostUUIDs[p.ID] = struct{}{}
	}

	runtime := &toolRuntime{gw: e.GW, slugCache: e.Slugs, uuidByExt: uuidByExt}
	userContent := buildUserContent(job.Posts)
	images := buildImages(ctx, job.Posts)

	rawEvents, err := runToolCallingLoop(ctx, e.clientFor(apiKey), runtime, systemPrompt, userContent, images)
	if err != nil {
		logFailedBatch(ctx, e.GW, job.BatchID, job.PipelineRunID, len(job.Posts), err.Error())
		return 0, fmt.Errorf("process batch %s: %w", job.BatchID, err)
	}

	valid, failures := ValidateRawEvents(rawEvents)
	for _, f := range failures {
		log.Warn().Str("event_name", f.Event.EventName).Str("reason", f.Reason).Msg("discarding invalid event")
	}

	events := make([]*models.Event, 0, len(valid))
	for _, raw := range valid {
		translated := translateSourceIDs(raw.SourceIDs, validPostUUIDs)
		if len(translated) == 0 {
			reason := fmt.Sprintf("event %q: no source_ids mapped to a post uuid in this batch", raw.EventName)
			logFailedBatch(ctx, e.GW, job.BatchID, job.PipelineRunID, len(job.Posts), reason)
			return 0, fmt.Errorf("process batch %s: %s", job.BatchID, reason)
		}
		events = append(events, toEventModel(raw, translated, "gemini"))
	}

	persisted, err := persistEvents(ctx, e.GW, e.Embedder, e.Slugs, events)
	if err != nil {
		logFailedBatch(ctx, e.GW, job.BatchID, job.PipelineRunID, len(job.Posts), err.Error())
		return persisted, fmt.Errorf("process batch %s: %w", job.BatchID, err)
	}

	postUUIDs := make([]string, 0, len(job.Posts))
	for _, p := range job.Posts {
		postUUIDs = append(postUUIDs, p.ID)
	}
	if err := markPostsProcessed(ctx, e.GW, postUUIDs); err != nil {
		return persisted, fmt.Errorf("process batch %s: mark processed: %w", job.BatchID, err)
	}

	log.Info().Int("events_persisted", persisted).Int("posts", len(job.Posts)).Msg("batch processed")
	return persisted, nil
}

// translateSourceIDs keeps only the model-supplied source IDs that are
// actually post UUIDs within this batch (spec.md §4.F.4).
func translateSourceIDs(sourceIDs []string, validPostUUIDs map[string]struct{}) []string {
	out := make([]string, 0, len(sourceIDs))
	for _, id := range sourceIDs {
		if _, ok := validPostUUIDs[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

var _ workerpool.Extractor = (*Engine)(nil)
