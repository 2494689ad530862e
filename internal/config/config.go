// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Adapted for civictrace/pipeline: same layered-defaults/file/env shape as
// the teacher's config.go, with the media-server-specific sections replaced
// by the pipeline's own stages (spec.md §6's environment variable table).

// Package config loads pipeline configuration from defaults, an optional
// YAML file, and environment variables, in that precedence order.
package config

import (
	"fmt"
	"time"
)

// DatabaseConfig configures the Storage Gateway's relational store.
type DatabaseConfig struct {
	URL string  `koanf:"db_url"`
	RPS float64 `koanf:"db_rps"`
}

// ObjectStoreConfig configures the S3/R2-compatible object store.
type ObjectStoreConfig struct {
	Endpoint        string `koanf:"object_store_endpoint"`
	Region          string `koanf:"object_store_region"`
	AccessKeyID     string `koanf:"object_store_access_key_id"`
	SecretAccessKey string `koanf:"object_store_secret_access_key"`
	PublicBaseURL   string `koanf:"object_store_public_base_url"`
}

// LLMConfig configures the extraction engine's LLM client and worker pool.
type LLMConfig struct {
	APIKeys                []string      `koanf:"llm_api_keys"` // LLM_API_KEY_1..6
	MaxWorkers             int           `koanf:"max_workers"`
	WorkerCooldown         time.Duration `koanf:"api_worker_cooldown_seconds"`
	RequestTimeout         time.Duration `koanf:"gemini_api_timeout"`
	EventProcessorTimeout  time.Duration `koanf:"event_processor_timeout"`
	MaxRetries             int           `koanf:"llm_max_retries"`
	UseFunctionTools       bool          `koanf:"use_function_tools"`
}

// BatchConfig configures the batch builder (spec.md §4.D).
type BatchConfig struct {
	MaxTokensPerBatch      int `koanf:"max_tokens_per_batch"`
	PostsPerBatch          int `koanf:"posts_per_batch"`
	MaxPostsPerBatch       int `koanf:"max_posts_per_batch"`
	SystemPromptTokens     int `koanf:"system_prompt_tokens"`
	AverageTokensPerImage  int `koanf:"average_tokens_per_image"`
	AverageTokensPerPost   int `koanf:"average_tokens_per_post"`
	MaxDateRangeDays       int `koanf:"max_date_range_days"`
}

// MediaConfig configures the media fetcher (spec.md §4.C).
type MediaConfig struct {
	DownloadConcurrency int `koanf:"media_download_concurrency"`
	UploadConcurrency   int `koanf:"media_upload_concurrency"`
	MaxIdleConns        int `koanf:"media_max_idle_conns"`
	MaxIdleConnsPerHost int `koanf:"media_max_idle_conns_per_host"`
	FlushEvery          int `koanf:"media_flush_every"`
}

// OrchestratorConfig configures stage polling and cancellation (spec.md §4.H).
type OrchestratorConfig struct {
	PollSeconds  time.Duration `koanf:"poll_seconds"`
	LogTailLines int           `koanf:"log_tail_lines"`
	RunStatePath string        `koanf:"run_state_path"` // badger mirror directory
	BinDir       string        `koanf:"bin_dir"`         // where this module's own cmd/* binaries live
	MetricsAddr  string        `koanf:"metrics_addr"`   // Prometheus /metrics listen address; empty disables it
}

// ScraperConfig holds the operator-configured external commands for the four
// scraper stages spec.md §1 Non-goals place outside this module (the
// scraping adapters are treated as producers of raw record files this
// module only consumes). Each field is a full shell-style command line,
// split on whitespace into argv by cmd/orchestrator.
type ScraperConfig struct {
	TwitterScrapeCmd         string `koanf:"twitter_scrape_cmd"`
	InstagramScrapeCmd       string `koanf:"instagram_scrape_cmd"`
	TwitterProfileScrapeCmd  string `koanf:"twitter_profile_scrape_cmd"`
	InstagramProfileScrapeCmd string `koanf:"instagram_profile_scrape_cmd"`
}

// MessagingConfig configures the NATS JetStream broker the Worker Pool uses
// to deliver batches (spec.md §4.E: "parallel workers sharing a process").
type MessagingConfig struct {
	URL string `koanf:"nats_url"`
}

// GeocodeConfig configures the Coordinate backfill's external provider
// (spec.md §4.H, §1 Non-goals: "geocoding providers ... treated as a
// (city,state)->(lat,lon) function").
type GeocodeConfig struct {
	ProviderURL string `koanf:"geocode_provider_url"`
	APIKey      string `koanf:"geocode_api_key"`
	Timeout     time.Duration `koanf:"geocode_timeout"`
}

// LoggingConfig mirrors the teacher's logging.Config shape.
type LoggingConfig struct {
	Level  string `koanf:"log_level"`
	Format string `koanf:"log_format"`
	Caller bool   `koanf:"log_caller"`
}

// SecurityConfig holds the at-rest encryption secret for API keys.
type SecurityConfig struct {
	CredentialEncryptionSecret string `koanf:"credential_encryption_secret"`
}

// Config is the pipeline's full configuration tree.
type Config struct {
	Database     DatabaseConfig     `koanf:"database"`
	ObjectStore  ObjectStoreConfig  `koanf:"object_store"`
	LLM          LLMConfig          `koanf:"llm"`
	Batch        BatchConfig        `koanf:"batch"`
	Media        MediaConfig        `koanf:"media"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Scrapers     ScraperConfig      `koanf:"scrapers"`
	Messaging    MessagingConfig    `koanf:"messaging"`
	Geocode      GeocodeConfig      `koanf:"geocode"`
	Logging      LoggingConfig      `koanf:"logging"`
	Security     SecurityConfig     `koanf:"security"`
}

// defaultConfig returns sensible defaults for every field, applied before
// the config file and environment variable layers.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL: "/data/civictrace.duckdb",
			RPS: 20,
		},
		ObjectStore: ObjectStoreConfig{
			Region: "auto",
		},
		LLM: LLMConfig{
			MaxWorkers:            6,
			WorkerCooldown:        60 * time.Second,
			RequestTimeout:        600 * time.Second,
			EventProcessorTimeout: 12 * time.Hour,
			MaxRetries:            5,
			UseFunctionTools:      true,
		},
		Batch: BatchConfig{
			MaxTokensPerBatch:     200_000,
			PostsPerBatch:         75,
			MaxPostsPerBatch:      150,
			SystemPromptTokens:    4_000,
			AverageTokensPerImage: 600,
			AverageTokensPerPost:  2_000,
			MaxDateRangeDays:      3,
		},
		Media: MediaConfig{
			DownloadConcurrency: 100,
			UploadConcurrency:   50,
			MaxIdleConns:        150,
			MaxIdleConnsPerHost: 50,
			FlushEvery:          100,
		},
		Orchestrator: OrchestratorConfig{
			PollSeconds:  10 * time.Second,
			LogTailLines: 200,
			RunStatePath: "/data/civictrace/run-state",
			BinDir:       "/usr/local/bin",
			MetricsAddr:  ":3857",
		},
		Messaging: MessagingConfig{
			URL: "nats://127.0.0.1:4222",
		},
		Geocode: GeocodeConfig{
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate reports configuration errors that would make the pipeline unsafe
// to run (no API keys, non-positive rate limits, etc).
func (c *Config) Validate() error {
	if c.Database.RPS <= 0 {
		return fmt.Errorf("database.rps must be positive, got %f", c.Database.RPS)
	}
	if c.LLM.MaxWorkers <= 0 {
		return fmt.Errorf("llm.max_workers must be positive, got %d", c.LLM.MaxWorkers)
	}
	if c.Batch.MaxTokensPerBatch <= 0 {
		return fmt.Errorf("batch.max_tokens_per_batch must be positive")
	}
	return nil
}

// WorkerCount returns the effective worker count per spec.md §4.E: the
// minimum of MaxWorkers and the number of configured API keys, at least 1.
func (c *Config) WorkerCount() int {
	n := c.LLM.MaxWorkers
	if len(c.LLM.APIKeys) > 0 && len(c.LLM.APIKeys) < n {
		n = len(c.LLM.APIKeys)
	}
	if n < 1 {
		n = 1
	}
	return n
}

// DryRunFromEnv reports whether DEDUP_DRY_RUN is set, used by cmd/dedup to
// compute and log merge groups without writing them (spec.md §11 supplement).
// This is a run-scoped CLI flag, not a persisted Config field, so it reads
// straight from the environment rather than through the koanf tree.
func DryRunFromEnv() bool {
	return getBoolEnv("DEDUP_DRY_RUN", false)
}

// ResumeFromEnv reports whether RESUME is set, used by cmd/orchestrator to
// pick up a prior pipeline run from its badger-backed step state instead of
// starting a fresh one.
func ResumeFromEnv() bool {
	return getBoolEnv("RESUME", false)
}
