// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package llm

import "time"

// Config bounds one Client's retry and model behavior.
type Config struct {
	// Model is the Gemini model handle, lazily resolved on first use
	// (spec.md §4.E worker state: model_handle).
	Model string

	// MaxRetries bounds generic transient-error retries (spec.md §4.F.3).
	MaxRetries int

	// BaseBackoff is the base of the exponential back-off: BaseBackoff *
	// 2^attempt, clamped at MaxBackoff.
	BaseBackoff time.Duration

	// MaxBackoff clamps the computed back-off delay.
	MaxBackoff time.Duration

	// InnerConnectionAttempts bounds the connection-specific retry loop
	// nested inside a single Generate call, before surfacing the error to
	// the outer MaxRetries loop (spec.md §4.F.3: "Connection-specific
	// errors also retry up to 3 inner attempts").
	InnerConnectionAttempts int
}

const (
	DefaultModel                   = "gemini-2.0-flash"
	DefaultMaxRetries              = 5
	DefaultBaseBackoff             = 2 * time.Second
	DefaultMaxBackoff              = 30 * time.Second
	DefaultInnerConnectionAttempts = 3
)

// WithDefaults fills every zero-valued field with the teacher's default.
func (cfg Config) WithDefaults() Config {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.InnerConnectionAttempts <= 0 {
		cfg.InnerConnectionAttempts = DefaultInnerConnectionAttempts
	}
	return cfg
}

// backoffDelay returns BaseBackoff * 2^attempt, clamped at MaxBackoff.
func (cfg Config) backoffDelay(attempt int) time.Duration {
	delay := cfg.BaseBackoff * time.Duration(uint64(1)<<uint(attempt))
	if delay > cfg.MaxBackoff || delay <= 0 {
		return cfg.MaxBackoff
	}
	return delay
}
