// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Adapted from internal/import.BadgerProgress: same Save/View-transaction
// pattern against a local BadgerDB, repurposed to mirror the in-flight
// PipelineRun so a process restart can resume the current step without a
// round trip to the relational store first.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/civictrace/pipeline/internal/models"
)

// mirrorKey is the BadgerDB key for the currently in-flight run.
const mirrorKey = "orchestrator:active_run"

// RunMirror is a local, durable cache of the in-flight PipelineRun, backed
// by BadgerDB. It is consulted on startup before polling the relational
// store, so a crash mid-run resumes from the last-saved step state even if
// the relational store round trip is unavailable.
type RunMirror struct {
	db *badger.DB
}

// NewRunMirror wraps an already-open BadgerDB handle.
func NewRunMirror(db *badger.DB) *RunMirror {
	return &RunMirror{db: db}
}

// Save persists run as the active run.
func (m *RunMirror) Save(_ context.Context, run *models.PipelineRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal active run: %w", err)
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(mirrorKey), data)
	})
}

// Load returns the last-saved active run, or nil if none is mirrored.
func (m *RunMirror) Load(_ context.Context) (*models.PipelineRun, error) {
	var run models.PipelineRun
	found := false
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(mirrorKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load active run: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &run, nil
}

// Clear removes the mirrored run once it reaches a terminal status.
func (m *RunMirror) Clear(_ context.Context) error {
	return m.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(mirrorKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
