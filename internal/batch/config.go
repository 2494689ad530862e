// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package batch

// Strategy selects which batching policy BuildBatches applies.
type Strategy string

const (
	StrategyTokenOptimized      Strategy = "token_optimized"
	StrategyDateClustered       Strategy = "date_clustered"
	StrategyChronologicalPacked Strategy = "chronological_day_packed"
)

// Config bounds every strategy (spec.md §4.D). Zero values are replaced by
// the teacher's defaults in WithDefaults.
type Config struct {
	Strategy Strategy

	// MaxTokensPerBatch is the hard token ceiling for a batch, including
	// the system prompt and a fixed response-token buffer.
	MaxTokensPerBatch int

	// MaxPostsPerBatch additionally bounds batch size by post count.
	MaxPostsPerBatch int

	// MaxDateRangeDays bounds how far a post's date may drift from the
	// first post in its batch. Only enforced by StrategyDateClustered.
	MaxDateRangeDays int

	// PrioritizeRecentPosts sorts input newest-first before batching when
	// true (the default); oldest-first otherwise.
	PrioritizeRecentPosts bool

	// DateClusteringEnabled toggles the date-range check within
	// StrategyDateClustered. When false that strategy behaves exactly
	// like StrategyTokenOptimized.
	DateClusteringEnabled bool

	// SystemPromptTokens is added once per batch to account for the fixed
	// extractor system prompt.
	SystemPromptTokens int

	// AverageTokensPerPost caps the estimated token cost of any single
	// post's text and metadata.
	AverageTokensPerPost int

	// AverageTokensPerImage is added per attached image in a post.
	AverageTokensPerImage int

	// ResponseTokenBuffer is added once per batch by EstimateTokensForBatch
	// to account for the model's own response.
	ResponseTokenBuffer int
}

// Default values mirror config/settings.py in the original implementation.
const (
	DefaultMaxTokensPerBatch     = 200000
	DefaultMaxPostsPerBatch      = 50
	DefaultMaxDateRangeDays      = 30
	DefaultSystemPromptTokens    = 15000
	DefaultAverageTokensPerPost  = 500
	DefaultAverageTokensPerImage = 300
	DefaultResponseTokenBuffer   = 5000

	// dayFitSafetyMargin and authorSplitSafetyMargin are the 0.9 / 0.8
	// ceiling fractions ChronologicalDayPacked applies when deciding
	// whether a whole day, or a single author's posts within an
	// oversized day, still fit in the current batch.
	dayFitSafetyMargin      = 0.9
	authorSplitSafetyMargin = 0.8
)

// NewConfig returns the teacher's default configuration for strategy:
// recent-first ordering and date clustering both enabled. Callers that need
// oldest-first ordering or an unbounded date range should flip the returned
// Config's fields explicitly, since a zero Config cannot distinguish "unset"
// from "explicitly false" for those two flags.
func NewConfig(strategy Strategy) Config {
	cfg := Config{
		Strategy:              strategy,
		PrioritizeRecentPosts: true,
		DateClusteringEnabled: true,
	}
	return cfg.WithDefaults()
}

// WithDefaults returns a copy of cfg with every zero-valued numeric bound
// replaced by the teacher's default. It never touches PrioritizeRecentPosts
// or DateClusteringEnabled, since false is a meaningful explicit value for
// both; use NewConfig to start from the teacher's defaults for those.
func (cfg Config) WithDefaults() Config {
	if cfg.MaxTokensPerBatch <= 0 {
		cfg.MaxTokensPerBatch = DefaultMaxTokensPerBatch
	}
	if cfg.MaxPostsPerBatch <= 0 {
		cfg.MaxPostsPerBatch = DefaultMaxPostsPerBatch
	}
	if cfg.MaxDateRangeDays <= 0 {
		cfg.MaxDateRangeDays = DefaultMaxDateRangeDays
	}
	if cfg.SystemPromptTokens <= 0 {
		cfg.SystemPromptTokens = DefaultSystemPromptTokens
	}
	if cfg.AverageTokensPerPost <= 0 {
		cfg.AverageTokensPerPost = DefaultAverageTokensPerPost
	}
	if cfg.AverageTokensPerImage <= 0 {
		cfg.AverageTokensPerImage = DefaultAverageTokensPerImage
	}
	if cfg.ResponseTokenBuffer <= 0 {
		cfg.ResponseTokenBuffer = DefaultResponseTokenBuffer
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyTokenOptimized
	}
	return cfg
}
