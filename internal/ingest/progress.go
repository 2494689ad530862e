// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on the teacher's internal/import/progress.go BadgerProgress: same
// BadgerDB get/set/clear shape, retargeted from a single row-ID cursor to a
// per-source-file marker so a crash mid-run resumes by skipping files
// already archived instead of re-scanning the bucket from the start.

package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	goccyjson "github.com/goccy/go-json"
)

const progressKeyPrefix = "ingest:file:"

// ProgressTracker records which source files an ingestion run has already
// fully processed, so a restart can skip them.
type ProgressTracker interface {
	MarkDone(ctx context.Context, bucket, key string) error
	IsDone(ctx context.Context, bucket, key string) (bool, error)
	Clear(ctx context.Context) error
}

// BadgerProgress implements ProgressTracker using BadgerDB for persistence
// across process restarts.
type BadgerProgress struct {
	db *badger.DB
}

// NewBadgerProgress builds a progress tracker over an already-open Badger
// handle.
func NewBadgerProgress(db *badger.DB) *BadgerProgress {
	return &BadgerProgress{db: db}
}

func fileProgressKey(bucket, key string) []byte {
	return []byte(progressKeyPrefix + bucket + "\x1f" + key)
}

// MarkDone persists that bucket/key has been fully normalized, UPSERTed, and
// archived.
func (p *BadgerProgress) MarkDone(_ context.Context, bucket, key string) error {
	data, err := goccyjson.Marshal(struct{ Done bool }{Done: true})
	if err != nil {
		return fmt.Errorf("marshal progress marker: %w", err)
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fileProgressKey(bucket, key), data)
	})
}

// IsDone reports whether bucket/key was already processed in a prior run.
func (p *BadgerProgress) IsDone(_ context.Context, bucket, key string) (bool, error) {
	var done bool
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileProgressKey(bucket, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var marker struct{ Done bool }
			if err := goccyjson.Unmarshal(val, &marker); err != nil {
				return err
			}
			done = marker.Done
			return nil
		})
	})
	if err != nil {
		return false, fmt.Errorf("load progress: %w", err)
	}
	return done, nil
}

// Clear drops every recorded progress marker, forcing a fresh, full-bucket
// re-scan on the next run.
func (p *BadgerProgress) Clear(_ context.Context) error {
	return p.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(progressKeyPrefix)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// InMemoryProgress implements ProgressTracker without persistence, for tests
// and migration runs that never need to resume.
type InMemoryProgress struct {
	done map[string]bool
}

// NewInMemoryProgress builds a progress tracker backed by a plain map.
func NewInMemoryProgress() *InMemoryProgress {
	return &InMemoryProgress{done: make(map[string]bool)}
}

func (p *InMemoryProgress) MarkDone(_ context.Context, bucket, key string) error {
	p.done[bucket+"\x1f"+key] = true
	return nil
}

func (p *InMemoryProgress) IsDone(_ context.Context, bucket, key string) (bool, error) {
	return p.done[bucket+"\x1f"+key], nil
}

func (p *InMemoryProgress) Clear(_ context.Context) error {
	p.done = make(map[string]bool)
	return nil
}
