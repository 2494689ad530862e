// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command extract runs one pass of the event_process stage (spec.md §4.D,
// §4.E, §4.F): build batches from unprocessed posts, dispatch them across a
// supervised pool of LLM extraction workers over NATS, and exit once every
// published batch has a recorded result or the event-processor timeout
// elapses. The Pipeline Orchestrator launches this as a child process.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civictrace/pipeline/internal/batch"
	"github.com/civictrace/pipeline/internal/config"
	"github.com/civictrace/pipeline/internal/extract"
	"github.com/civictrace/pipeline/internal/llm"
	"github.com/civictrace/pipeline/internal/logging"
	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
	"github.com/civictrace/pipeline/internal/supervisor"
	"github.com/civictrace/pipeline/internal/workerpool"
)

// maxCandidatePosts bounds one pass's selection query so a single backlog
// spike can't build an unbounded in-memory batch set; spec.md §4.D's
// selection query is itself paginated ≤500 rows at a time.
const maxCandidatePosts = 2000

func main() {
	runID := flag.String("run-id", "", "pipeline run ID this invocation belongs to")
	flag.Parse()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})
	log := logging.Logger().With().Str("stage", "event_process").Str("run_id", *runID).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, log)

	gw, err := storage.New(storage.Config{Path: cfg.Database.URL, RPS: cfg.Database.RPS}, nil, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage gateway")
	}
	defer gw.Close()

	posts, err := unprocessedPosts(ctx, gw)
	if err != nil {
		log.Fatal().Err(err).Msg("load unprocessed posts")
	}
	if len(posts) == maxCandidatePosts {
		log.Warn().Int("limit", maxCandidatePosts).Msg("unprocessed post backlog exceeds one pass's cap, remainder deferred to next run")
	}
	log.Info().Int("candidate_posts", len(posts)).Msg("loaded unprocessed posts")

	batchCfg := batch.NewConfig(batch.StrategyChronologicalPacked)
	batchCfg.MaxTokensPerBatch = cfg.Batch.MaxTokensPerBatch
	batchCfg.MaxPostsPerBatch = cfg.Batch.MaxPostsPerBatch
	batchCfg.MaxDateRangeDays = cfg.Batch.MaxDateRangeDays
	batchCfg.SystemPromptTokens = cfg.Batch.SystemPromptTokens
	batchCfg.AverageTokensPerPost = cfg.Batch.AverageTokensPerPost
	batchCfg.AverageTokensPerImage = cfg.Batch.AverageTokensPerImage
	batches := batch.BuildBatches(batchCfg, posts)
	if len(batches) == 0 {
		log.Info().Msg("no batches to process, exiting")
		os.Exit(0)
	}
	log.Info().Int("batch_count", len(batches)).Msg("built batches")

	wmLogger := watermill.NewStdLogger(false, false)

	publisher, err := workerpool.NewPublisher(workerpool.DefaultPublisherConfig(cfg.Messaging.URL), wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("connect batch publisher")
	}
	defer publisher.Close()

	resultPublisher, err := workerpool.NewPublisher(workerpool.DefaultPublisherConfig(cfg.Messaging.URL), wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("connect result publisher")
	}
	defer resultPublisher.Close()

	workerCount := cfg.WorkerCount()
	subscriber, err := workerpool.NewSubscriber(ptr(workerpool.DefaultSubscriberConfig(cfg.Messaging.URL, workerCount)), wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("connect batch subscriber")
	}
	defer subscriber.Close()

	resultsCfg := workerpool.DefaultSubscriberConfig(cfg.Messaging.URL, 1)
	resultsCfg.QueueGroup = "event-process-results-collector"
	resultsCfg.DurableName = "event-process-results-collector"
	resultsSubscriber, err := workerpool.NewSubscriber(&resultsCfg, wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("connect result subscriber")
	}
	defer resultsSubscriber.Close()

	llmCfg := llm.Config{MaxRetries: cfg.LLM.MaxRetries}.WithDefaults()
	engine := extract.NewEngine(gw, llmCfg, nil)
	cancelCheck := runCancelledPredicate(gw)

	maskedKeys := make([]string, len(cfg.LLM.APIKeys))
	for i, k := range cfg.LLM.APIKeys {
		maskedKeys[i] = config.MaskCredential(k)
	}
	log.Info().Strs("api_keys", maskedKeys).Int("worker_count", workerCount).Msg("extraction workers provisioned")

	pool := workerpool.NewPool(cfg.LLM.APIKeys, workerCount, cfg.LLM.WorkerCooldown, engine, subscriber, resultPublisher, cancelCheck, wmLogger)

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("build supervisor tree")
	}
	for _, w := range pool.Workers {
		tree.AddWorkerService(w)
	}

	timeout := cfg.LLM.EventProcessorTimeout
	if timeout <= 0 {
		timeout = 12 * time.Hour
	}
	runCtx, cancelRun := context.WithTimeout(ctx, timeout)
	defer cancelRun()

	treeErrs := tree.ServeBackground(runCtx)

	for _, b := range batches {
		job := toBatchJob(b, *runID)
		if err := publisher.PublishBatch(runCtx, job); err != nil {
			log.Error().Err(err).Str("batch_id", job.BatchID).Msg("publish batch failed")
		}
	}
	log.Info().Int("published", len(batches)).Msg("batches published, awaiting results")

	completed, err := awaitResults(runCtx, resultsSubscriber, len(batches), log)
	if err != nil {
		log.Warn().Err(err).Int("completed", completed).Int("expected", len(batches)).Msg("event processing pass ended before every batch completed")
	}

	cancelRun()
	select {
	case treeErr := <-treeErrs:
		if treeErr != nil && treeErr != context.Canceled && treeErr != context.DeadlineExceeded {
			log.Warn().Err(treeErr).Msg("supervisor tree exited with error")
		}
	case <-time.After(5 * time.Second):
		log.Warn().Msg("supervisor tree shutdown did not report back in time")
	}

	log.Info().
		Int("batches_published", len(batches)).
		Int("batches_completed", completed).
		Int64("llm_requests_made", pool.TotalRequestsMade()).
		Int64("llm_requests_last_minute", pool.TotalRequestsInLastMinute()).
		Msg("event processing pass complete")
	os.Exit(0)
}

func ptr[T any](v T) *T { return &v }

// unprocessedPosts loads the full set of posts the Batch Builder can still
// group: every column the extraction prompt needs, not just id, since
// workerpool.BatchJob carries whole models.Post values end to end.
func unprocessedPosts(ctx context.Context, gw *storage.Gateway) ([]*models.Post, error) {
	var posts []*models.Post
	err := gw.WithRetry(ctx, "extract_load_candidates", func(ctx context.Context) error {
		rows, err := gw.DB().QueryContext(ctx, `
			SELECT id, platform, external_post_id, author_handle, author_display_name,
			       content_text, timestamp, media_urls, mentioned_handles, hashtags,
			       like_count, reply_count, retweet_count, location_text, offline_media_url
			FROM posts
			WHERE processed_for_events = false AND event_processed_at IS NULL
			ORDER BY timestamp DESC
			LIMIT ?`, maxCandidatePosts)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p models.Post
			var platform string
			var ts sql.NullTime
			var mediaURLs, mentionedHandles, hashtags string
			var offlineURL sql.NullString
			if err := rows.Scan(&p.ID, &platform, &p.ExternalPostID, &p.AuthorHandle, &p.AuthorDisplayName,
				&p.ContentText, &ts, &mediaURLs, &mentionedHandles, &hashtags,
				&p.LikeCount, &p.ReplyCount, &p.RetweetCount, &p.LocationText, &offlineURL); err != nil {
				return err
			}
			p.Platform = models.Platform(platform)
			if ts.Valid {
				t := ts.Time
				p.Timestamp = &t
			}
			if mediaURLs != "" {
				p.MediaURLs = strings.Split(mediaURLs, "\x1f")
			}
			if mentionedHandles != "" {
				p.MentionedHandles = strings.Split(mentionedHandles, "\x1f")
			}
			if hashtags != "" {
				p.Hashtags = strings.Split(hashtags, "\x1f")
			}
			if offlineURL.Valid {
				v := offlineURL.String
				p.OfflineMediaURL = &v
			}
			posts = append(posts, &p)
		}
		return rows.Err()
	})
	return posts, err
}

// toBatchJob converts one Batch Builder result into the wire envelope the
// worker pool dispatches.
func toBatchJob(b batch.Batch, pipelineRunID string) *workerpool.BatchJob {
	posts := make([]models.Post, len(b.Posts))
	for i, p := range b.Posts {
		posts[i] = *p
	}
	return &workerpool.BatchJob{
		BatchID:         uuid.NewString(),
		Posts:           posts,
		CreatedAt:       time.Now().UTC(),
		EstimatedTokens: b.EstimatedTokens,
		PipelineRunID:   pipelineRunID,
	}
}

// runCancelledPredicate polls pipeline_runs.status directly: true once the
// run has been marked cancelled or failed out from under this stage
// (spec.md §4.E Cancellation).
func runCancelledPredicate(gw *storage.Gateway) workerpool.CancelPredicate {
	return func(ctx context.Context, pipelineRunID string) (bool, error) {
		if pipelineRunID == "" {
			return false, nil
		}
		var status string
		err := gw.WithRetry(ctx, "extract_check_cancelled", func(ctx context.Context) error {
			return gw.DB().QueryRowContext(ctx, `SELECT status FROM pipeline_runs WHERE id = ?`, pipelineRunID).Scan(&status)
		})
		if err != nil {
			return false, err
		}
		return status == string(models.RunCancelled), nil
	}
}

// awaitResults consumes BatchResult messages off ResultTopic until expected
// have arrived or ctx is done (event-processor timeout or shutdown signal).
func awaitResults(ctx context.Context, sub *workerpool.Subscriber, expected int, log zerolog.Logger) (int, error) {
	if expected == 0 {
		return 0, nil
	}
	messages, err := sub.Subscribe(ctx, workerpool.ResultTopic)
	if err != nil {
		return 0, err
	}

	completed := 0
	for completed < expected {
		select {
		case <-ctx.Done():
			return completed, ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return completed, nil
			}
			result, err := workerpool.DeserializeResult(msg.Payload)
			if err != nil {
				msg.Ack()
				continue
			}
			if result.Err != "" {
				log.Warn().Str("batch_id", result.BatchID).Str("error", result.Err).Msg("batch extraction reported an error")
			}
			msg.Ack()
			completed++
		}
	}
	return completed, nil
}
