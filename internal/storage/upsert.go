// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Generic chunked batch UPSERT, modeled on the retry/backoff loop in
// original_source/automation/processors/flash_standalone_event_processor.py's
// database_operation_with_retry, generalized to a reusable column-map row
// shape so every stage (ingest, extract, dedup) shares one implementation.

package storage

import (
	"context"
	"fmt"
	"strings"
)

// Row is one record to UPSERT, keyed by column name.
type Row map[string]any

// UpsertResult reports, per conflict-key value, whether the row was newly
// created (CreatedAt == UpdatedAt in the underlying table) so callers can
// decide whether to materialize downstream links (spec.md §4.F.4).
type UpsertResult struct {
	// IDsByConflictKey maps the row's conflict-key value to the persisted
	// primary key.
	IDsByConflictKey map[string]string
	// NewByConflictKey reports which conflict-key values were newly created.
	NewByConflictKey map[string]bool
}

// MaxUpsertChunk is the maximum row count per UPSERT statement (spec.md §4.A).
const MaxUpsertChunk = 1000

// UpsertBatch writes rows to table in chunks of at most MaxUpsertChunk,
// resolving conflicts on conflictCols via "ON CONFLICT ... DO UPDATE". A
// chunk that errors with a duplicate-key violation on a non-conflict column
// (e.g. a legacy unique index) falls back to per-row insertion so a single
// bad row never drops the rest of the chunk (spec.md §4.B "falls back to
// per-row insertion, silently skipping duplicates").
func (g *Gateway) UpsertBatch(ctx context.Context, table string, conflictCols []string, idCol string, rows []Row) (*UpsertResult, error) {
	result := &UpsertResult{
		IDsByConflictKey: make(map[string]string, len(rows)),
		NewByConflictKey: make(map[string]bool, len(rows)),
	}
	if len(rows) == 0 {
		return result, nil
	}

	for start := 0; start < len(rows); start += MaxUpsertChunk {
		end := start + MaxUpsertChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		err := g.WithRetry(ctx, "upsert:"+table, func(ctx context.Context) error {
			return g.execUpsertChunk(ctx, table, conflictCols, idCol, chunk, result)
		})
		if err != nil {
			if !isDuplicateKeyError(err) {
				return result, fmt.Errorf("upsert %s rows %d-%d: %w", table, start, end, err)
			}
			// Fall back to per-row insertion so one bad row in the chunk
			// doesn't block the rest (spec.md §4.B).
			for _, row := range chunk {
				_ = g.execUpsertChunk(ctx, table, conflictCols, idCol, []Row{row}, result)
			}
		}
	}
	return result, nil
}

func (g *Gateway) execUpsertChunk(ctx context.Context, table string, conflictCols []string, idCol string, rows []Row, result *UpsertResult) error {
	if len(rows) == 0 {
		return nil
	}

	cols := columnOrder(rows[0])
	placeholders := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*len(cols))
	for _, row := range rows {
		ph := make([]string, len(cols))
		for i, c := range cols {
			ph[i] = "?"
			args = append(args, row[c])
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
	}

	updateSet := make([]string, 0, len(cols))
	for _, c := range cols {
		if containsStr(conflictCols, c) {
			continue
		}
		updateSet = append(updateSet, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	// Pure link tables upsert on their whole column set, leaving nothing to
	// update: "DO UPDATE SET" with an empty assignment list is a syntax
	// error, so fall back to "DO NOTHING".
	conflictAction := "DO UPDATE SET " + strings.Join(updateSet, ",")
	if len(updateSet) == 0 {
		conflictAction = "DO NOTHING"
	}

	// A table's created_at/updated_at audit columns aren't guaranteed to be
	// part of this row's column set (link tables generally don't carry
	// them), so only ask for is_new when they're present.
	hasAuditCols := containsStr(cols, "created_at") && containsStr(cols, "updated_at")
	isNewExpr := ""
	if hasAuditCols {
		isNewExpr = ", (created_at = updated_at) AS is_new"
	}

	// Return the conflict columns alongside idCol so each RETURNING row can
	// be matched back to its conflict key directly: with DO NOTHING, a
	// pre-existing conflicting row produces no RETURNING row at all, so the
	// output no longer lines up positionally with the input rows.
	returningCols := append(append([]string{}, idCol), conflictCols...)

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) %s RETURNING %s%s",
		table,
		strings.Join(cols, ","),
		strings.Join(placeholders, ","),
		strings.Join(conflictCols, ","),
		conflictAction,
		strings.Join(returningCols, ","),
		isNewExpr,
	)

	rowsOut, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rowsOut.Close()

	for rowsOut.Next() {
		var id string
		keyVals := make([]string, len(conflictCols))
		scanArgs := make([]any, 0, len(returningCols)+1)
		scanArgs = append(scanArgs, &id)
		for i := range keyVals {
			scanArgs = append(scanArgs, &keyVals[i])
		}
		var isNew bool
		if hasAuditCols {
			scanArgs = append(scanArgs, &isNew)
		} else {
			// DO NOTHING only ever returns rows it actually inserted, so
			// every row reaching here is new.
			isNew = conflictAction == "DO NOTHING"
		}
		if err := rowsOut.Scan(scanArgs...); err != nil {
			return err
		}
		key := strings.Join(keyVals, "\x1f")
		result.IDsByConflictKey[key] = id
		result.NewByConflictKey[key] = isNew
	}
	return rowsOut.Err()
}

func columnOrder(row Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	return cols
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

