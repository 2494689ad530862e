// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package workerpool

import (
	"context"
	"testing"
	"time"
)

type stubExtractor struct {
	persisted int
	err       error
	calls     int
}

func (s *stubExtractor) ProcessBatch(_ context.Context, _ *BatchJob, _ string) (int, error) {
	s.calls++
	return s.persisted, s.err
}

func TestWaitCooldownSleepsRemainder(t *testing.T) {
	w := &Worker{Cooldown: 50 * time.Millisecond}
	start := time.Now()
	w.waitCooldown()
	w.waitCooldown()
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("expected second call to wait out cooldown, elapsed %v", elapsed)
	}
	if w.RequestsMade() != 2 {
		t.Fatalf("expected 2 requests recorded, got %d", w.RequestsMade())
	}
}

func TestStaggerDelaysFirstWorkerImmediate(t *testing.T) {
	delays := StaggerDelays(4)
	if delays[0] != 0 {
		t.Fatalf("expected worker 0 to start immediately, got delay %v", delays[0])
	}
	for i := 1; i < len(delays); i++ {
		if delays[i] < 30*time.Second || delays[i] >= 90*time.Second {
			t.Fatalf("worker %d delay %v out of [30s,90s) range", i, delays[i])
		}
	}
}

func TestNewPoolCapsAtAPIKeyCount(t *testing.T) {
	pool := NewPool([]string{"a", "b"}, 6, time.Second, &stubExtractor{}, nil, nil, nil, nil)
	if len(pool.Workers) != 2 {
		t.Fatalf("expected pool capped to 2 workers, got %d", len(pool.Workers))
	}
	if pool.Workers[0].APIKey != "a" || pool.Workers[1].APIKey != "b" {
		t.Fatalf("expected workers bound to keys in order, got %+v", pool.Workers)
	}
}

func TestNewPoolAtLeastOneWorker(t *testing.T) {
	pool := NewPool(nil, 0, time.Second, &stubExtractor{}, nil, nil, nil, nil)
	if len(pool.Workers) != 1 {
		t.Fatalf("expected at least 1 worker, got %d", len(pool.Workers))
	}
}
