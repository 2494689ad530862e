// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"testing"
	"time"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", cfg.Model, DefaultModel)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.MaxRetries, DefaultMaxRetries)
	}
	if cfg.BaseBackoff != DefaultBaseBackoff {
		t.Errorf("BaseBackoff = %v, want %v", cfg.BaseBackoff, DefaultBaseBackoff)
	}
	if cfg.InnerConnectionAttempts != DefaultInnerConnectionAttempts {
		t.Errorf("InnerConnectionAttempts = %d, want %d", cfg.InnerConnectionAttempts, DefaultInnerConnectionAttempts)
	}
}

func TestConfigBackoffDelay(t *testing.T) {
	cfg := Config{BaseBackoff: 2 * time.Second, MaxBackoff: 30 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{4, 30 * time.Second}, // would be 32s, clamped
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := cfg.backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"connection refused", true},
		{"server disconnected", true},
		{"request timeout", true},
		{"unexpected EOF", true},
		{"invalid argument: confidence_score must be in [0,1]", false},
		{"", false},
	}
	for _, tt := range tests {
		var err error
		if tt.msg != "" {
			err = errString(tt.msg)
		}
		if got := isConnectionError(err); got != tt.want {
			t.Errorf("isConnectionError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
