// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"testing"
)

func TestLoadWithKoanfDefaults(t *testing.T) {
	clearPipelineEnv(t)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.RPS != 20 {
		t.Errorf("expected default db rps 20, got %v", cfg.Database.RPS)
	}
	if cfg.LLM.MaxWorkers != 6 {
		t.Errorf("expected default max_workers 6, got %d", cfg.LLM.MaxWorkers)
	}
	if cfg.Batch.PostsPerBatch != 75 {
		t.Errorf("expected default posts_per_batch 75, got %d", cfg.Batch.PostsPerBatch)
	}
}

func TestLoadWithKoanfEnvOverride(t *testing.T) {
	clearPipelineEnv(t)
	t.Setenv("DB_RPS", "5")
	t.Setenv("MAX_WORKERS", "3")
	t.Setenv("LLM_API_KEY_1", "key-one")
	t.Setenv("LLM_API_KEY_2", "key-two")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.RPS != 5 {
		t.Errorf("expected db rps override 5, got %v", cfg.Database.RPS)
	}
	if cfg.LLM.MaxWorkers != 3 {
		t.Errorf("expected max_workers override 3, got %d", cfg.LLM.MaxWorkers)
	}
	if len(cfg.LLM.APIKeys) != 2 || cfg.LLM.APIKeys[0] != "key-one" || cfg.LLM.APIKeys[1] != "key-two" {
		t.Errorf("expected two ordered API keys, got %v", cfg.LLM.APIKeys)
	}
	if got := cfg.WorkerCount(); got != 2 {
		t.Errorf("expected WorkerCount to cap at configured key count 2, got %d", got)
	}
}

func TestConfigValidateRejectsNonPositiveRPS(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.RPS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero db rps")
	}
}

func clearPipelineEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_URL", "DB_RPS", "MAX_WORKERS", "API_WORKER_COOLDOWN_SECONDS",
		"MAX_TOKENS_PER_BATCH", "POSTS_PER_BATCH", "MAX_POSTS_PER_BATCH",
		"GEMINI_API_TIMEOUT", "EVENT_PROCESSOR_TIMEOUT", "USE_FUNCTION_TOOLS",
		"LLM_API_KEY_1", "LLM_API_KEY_2", "LLM_API_KEY_3",
		"LLM_API_KEY_4", "LLM_API_KEY_5", "LLM_API_KEY_6",
		"CONFIG_PATH",
	} {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unsetenv %s: %v", key, err)
		}
	}
}
