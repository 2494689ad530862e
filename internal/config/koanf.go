// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/civictrace/config.yaml",
	"/etc/civictrace/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence is ENV > File > Defaults. LLM_API_KEY_1 through LLM_API_KEY_6
// are collected into LLM.APIKeys in numeric order; any that are missing are
// skipped rather than inserted as empty strings.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := loadAPIKeys(cfg); err != nil {
		return nil, fmt.Errorf("failed to load LLM API keys: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// encryptedKeyPrefix marks a config-file llm_api_keys entry as
// CredentialEncryptor ciphertext rather than a plaintext key, so a
// config.yaml checked into a deploy repo can hold encrypted keys instead of
// plaintext ones (security.credential_encryption_secret must also be set).
const encryptedKeyPrefix = "enc:"

// loadAPIKeys reads LLM_API_KEY_1..6 directly from the environment, since
// spec.md §6 defines them as discrete numbered variables rather than a
// single delimited list. A config-file llm.llm_api_keys list, if present, is
// kept as a lower-priority fallback and has any "enc:"-prefixed entries
// decrypted in place.
func loadAPIKeys(cfg *Config) error {
	var keys []string
	for i := 1; i <= 6; i++ {
		if v := os.Getenv(fmt.Sprintf("LLM_API_KEY_%d", i)); v != "" {
			keys = append(keys, v)
		}
	}
	if len(keys) > 0 {
		cfg.LLM.APIKeys = keys
		return nil
	}
	return decryptAPIKeys(cfg)
}

// decryptAPIKeys replaces any "enc:"-prefixed entry in cfg.LLM.APIKeys with
// its plaintext, using security.credential_encryption_secret to derive the
// decryption key.
func decryptAPIKeys(cfg *Config) error {
	var encryptor *CredentialEncryptor
	for i, key := range cfg.LLM.APIKeys {
		rest, ok := strings.CutPrefix(key, encryptedKeyPrefix)
		if !ok {
			continue
		}
		if encryptor == nil {
			enc, err := NewCredentialEncryptor(cfg.Security.CredentialEncryptionSecret)
			if err != nil {
				return fmt.Errorf("llm.llm_api_keys has an encrypted entry but no usable security.credential_encryption_secret: %w", err)
			}
			encryptor = enc
		}
		plaintext, err := encryptor.Decrypt(rest)
		if err != nil {
			return fmt.Errorf("decrypt llm_api_keys[%d]: %w", i, err)
		}
		cfg.LLM.APIKeys[i] = plaintext
	}
	return nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"llm.llm_api_keys",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths,
// mapping the flat env vars spec.md §6 defines onto the nested Config tree.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"db_url": "database.db_url",
		"db_rps": "database.db_rps",

		"object_store_endpoint":          "object_store.object_store_endpoint",
		"object_store_region":            "object_store.object_store_region",
		"object_store_access_key_id":     "object_store.object_store_access_key_id",
		"object_store_secret_access_key": "object_store.object_store_secret_access_key",
		"object_store_public_base_url":   "object_store.object_store_public_base_url",

		"max_workers":                  "llm.max_workers",
		"api_worker_cooldown_seconds":  "llm.api_worker_cooldown_seconds",
		"gemini_api_timeout":           "llm.gemini_api_timeout",
		"event_processor_timeout":      "llm.event_processor_timeout",
		"llm_max_retries":              "llm.llm_max_retries",
		"use_function_tools":          "llm.use_function_tools",

		"max_tokens_per_batch":     "batch.max_tokens_per_batch",
		"posts_per_batch":          "batch.posts_per_batch",
		"max_posts_per_batch":      "batch.max_posts_per_batch",
		"system_prompt_tokens":     "batch.system_prompt_tokens",
		"average_tokens_per_image": "batch.average_tokens_per_image",
		"average_tokens_per_post":  "batch.average_tokens_per_post",
		"max_date_range_days":      "batch.max_date_range_days",

		"media_download_concurrency":     "media.media_download_concurrency",
		"media_upload_concurrency":       "media.media_upload_concurrency",
		"media_max_idle_conns":           "media.media_max_idle_conns",
		"media_max_idle_conns_per_host":  "media.media_max_idle_conns_per_host",
		"media_flush_every":              "media.media_flush_every",

		"poll_seconds":    "orchestrator.poll_seconds",
		"log_tail_lines":  "orchestrator.log_tail_lines",
		"run_state_path":  "orchestrator.run_state_path",
		"bin_dir":         "orchestrator.bin_dir",
		"metrics_addr":    "orchestrator.metrics_addr",

		"twitter_scrape_cmd":          "scrapers.twitter_scrape_cmd",
		"instagram_scrape_cmd":        "scrapers.instagram_scrape_cmd",
		"twitter_profile_scrape_cmd":  "scrapers.twitter_profile_scrape_cmd",
		"instagram_profile_scrape_cmd": "scrapers.instagram_profile_scrape_cmd",

		"nats_url": "messaging.nats_url",

		"geocode_provider_url": "geocode.geocode_provider_url",
		"geocode_api_key":      "geocode.geocode_api_key",
		"geocode_timeout":      "geocode.geocode_timeout",

		"log_level":  "logging.log_level",
		"log_format": "logging.log_format",
		"log_caller": "logging.log_caller",

		"credential_encryption_secret": "security.credential_encryption_secret",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage, such as
// tests that need to inspect intermediate layered state.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile sets up a file watcher for hot-reload capability. The
// caller is responsible for mutex protection when accessing configuration
// during reloads.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
