// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

// createTestBadgerDB creates a temporary BadgerDB for testing.
func createTestBadgerDB(t *testing.T) (*badger.DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "badger-ingest-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	opts := badger.DefaultOptions(filepath.Join(tmpDir, "badger"))
	opts.Logger = nil // Suppress badger logs during tests

	db, err := badger.Open(opts)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to open badger: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

func TestBadgerProgress(t *testing.T) {
	t.Run("marks and reports done", func(t *testing.T) {
		db, cleanup := createTestBadgerDB(t)
		defer cleanup()

		progress := NewBadgerProgress(db)
		ctx := context.Background()

		done, err := progress.IsDone(ctx, "twitter-raw", "export-2026-01.csv")
		if err != nil {
			t.Fatalf("IsDone() error = %v", err)
		}
		if done {
			t.Error("expected file to not be done before MarkDone")
		}

		if err := progress.MarkDone(ctx, "twitter-raw", "export-2026-01.csv"); err != nil {
			t.Fatalf("MarkDone() error = %v", err)
		}

		done, err = progress.IsDone(ctx, "twitter-raw", "export-2026-01.csv")
		if err != nil {
			t.Fatalf("IsDone() error = %v", err)
		}
		if !done {
			t.Error("expected file to be done after MarkDone")
		}
	})

	t.Run("distinguishes between buckets and keys", func(t *testing.T) {
		db, cleanup := createTestBadgerDB(t)
		defer cleanup()

		progress := NewBadgerProgress(db)
		ctx := context.Background()

		if err := progress.MarkDone(ctx, "twitter-raw", "a.csv"); err != nil {
			t.Fatalf("MarkDone() error = %v", err)
		}

		if done, err := progress.IsDone(ctx, "instagram-raw", "a.csv"); err != nil || done {
			t.Errorf("IsDone(instagram-raw, a.csv) = (%v, %v), want (false, nil)", done, err)
		}
		if done, err := progress.IsDone(ctx, "twitter-raw", "b.csv"); err != nil || done {
			t.Errorf("IsDone(twitter-raw, b.csv) = (%v, %v), want (false, nil)", done, err)
		}
	})

	t.Run("clears progress", func(t *testing.T) {
		db, cleanup := createTestBadgerDB(t)
		defer cleanup()

		progress := NewBadgerProgress(db)
		ctx := context.Background()

		if err := progress.MarkDone(ctx, "twitter-raw", "a.csv"); err != nil {
			t.Fatalf("MarkDone() error = %v", err)
		}
		if err := progress.MarkDone(ctx, "instagram-raw", "b.json"); err != nil {
			t.Fatalf("MarkDone() error = %v", err)
		}

		if err := progress.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}

		for _, key := range []struct{ bucket, file string }{
			{"twitter-raw", "a.csv"},
			{"instagram-raw", "b.json"},
		} {
			done, err := progress.IsDone(ctx, key.bucket, key.file)
			if err != nil {
				t.Fatalf("IsDone() error = %v", err)
			}
			if done {
				t.Errorf("expected %s/%s to no longer be done after Clear()", key.bucket, key.file)
			}
		}
	})

	t.Run("survives reopening the same database", func(t *testing.T) {
		tmpDir, err := os.MkdirTemp("", "badger-ingest-reopen-*")
		if err != nil {
			t.Fatalf("Failed to create temp dir: %v", err)
		}
		defer os.RemoveAll(tmpDir)

		opts := badger.DefaultOptions(filepath.Join(tmpDir, "badger"))
		opts.Logger = nil

		db, err := badger.Open(opts)
		if err != nil {
			t.Fatalf("Failed to open badger: %v", err)
		}

		ctx := context.Background()
		progress := NewBadgerProgress(db)
		if err := progress.MarkDone(ctx, "twitter-raw", "a.csv"); err != nil {
			t.Fatalf("MarkDone() error = %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("failed to close badger: %v", err)
		}

		reopened, err := badger.Open(opts)
		if err != nil {
			t.Fatalf("Failed to reopen badger: %v", err)
		}
		defer reopened.Close()

		reopenedProgress := NewBadgerProgress(reopened)
		done, err := reopenedProgress.IsDone(ctx, "twitter-raw", "a.csv")
		if err != nil {
			t.Fatalf("IsDone() error = %v", err)
		}
		if !done {
			t.Error("expected progress to survive a close/reopen cycle")
		}
	})
}

func TestInMemoryProgress(t *testing.T) {
	t.Run("marks and reports done", func(t *testing.T) {
		progress := NewInMemoryProgress()
		ctx := context.Background()

		done, err := progress.IsDone(ctx, "twitter-raw", "a.csv")
		if err != nil {
			t.Fatalf("IsDone() error = %v", err)
		}
		if done {
			t.Error("expected file to not be done before MarkDone")
		}

		if err := progress.MarkDone(ctx, "twitter-raw", "a.csv"); err != nil {
			t.Fatalf("MarkDone() error = %v", err)
		}

		done, err = progress.IsDone(ctx, "twitter-raw", "a.csv")
		if err != nil {
			t.Fatalf("IsDone() error = %v", err)
		}
		if !done {
			t.Error("expected file to be done after MarkDone")
		}
	})

	t.Run("clears progress", func(t *testing.T) {
		progress := NewInMemoryProgress()
		ctx := context.Background()

		if err := progress.MarkDone(ctx, "twitter-raw", "a.csv"); err != nil {
			t.Fatalf("MarkDone() error = %v", err)
		}
		if err := progress.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}

		done, err := progress.IsDone(ctx, "twitter-raw", "a.csv")
		if err != nil {
			t.Fatalf("IsDone() error = %v", err)
		}
		if done {
			t.Error("expected progress to be gone after Clear()")
		}
	})
}

func TestSourceFileIsProcessed(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"processed/2026-01-15/export.csv", true},
		{"raw/export.csv", false},
		{"processed", false},
		{"processed/", true},
	}
	for _, tt := range tests {
		src := SourceFile{Key: tt.key}
		if got := src.IsProcessed(); got != tt.want {
			t.Errorf("SourceFile{Key: %q}.IsProcessed() = %v, want %v", tt.key, got, tt.want)
		}
	}
}
