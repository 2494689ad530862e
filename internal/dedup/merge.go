// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on deduplicate_events_with_gemini.py's merge_events, rewritten
// as a single storage.Gateway.WithTx transaction instead of the teacher's
// "careful ordering of separate REST calls" emulation (spec.md §4.G: "merge
// operation (transactional semantics, emulated by careful ordering)" - here
// actually transactional, since the relational store supports it).
package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/civictrace/pipeline/internal/storage"
)

// mergePair folds duplicateID into masterID inside one transaction,
// implementing spec.md §4.G's five-step merge operation. dryRun logs the
// plan without touching the database.
func mergePair(ctx context.Context, gw *storage.Gateway, masterID, duplicateID string, dryRun bool) error {
	if dryRun {
		return nil // caller logs the plan; no writes in dry-run mode.
	}

	return gw.WithTx(ctx, "merge_event_pair", func(ctx context.Context, tx *sql.Tx) error {
		if err := mergeCategoryTags(ctx, tx, masterID, duplicateID); err != nil {
			return err
		}
		if err := copyMissingFields(ctx, tx, masterID, duplicateID); err != nil {
			return err
		}
		if err := migratePostLinks(ctx, tx, masterID, duplicateID); err != nil {
			return err
		}
		if err := migrateActorLinks(ctx, tx, masterID, duplicateID); err != nil {
			return err
		}
		// Step 5: delete the duplicate event row only after steps 3-4's
		// link cleanup, to avoid foreign-key violations (spec.md §4.G).
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, duplicateID); err != nil {
			return fmt.Errorf("delete duplicate event %s: %w", duplicateID, err)
		}
		return nil
	})
}

// mergeCategoryTags implements step 1: union category_tags into the master.
func mergeCategoryTags(ctx context.Context, tx *sql.Tx, masterID, duplicateID string) error {
	masterTags, err := readCategoryTags(ctx, tx, masterID)
	if err != nil {
		return err
	}
	dupTags, err := readCategoryTags(ctx, tx, duplicateID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(masterTags))
	merged := make([]string, 0, len(masterTags)+len(dupTags))
	for _, t := range masterTags {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	for _, t := range dupTags {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	if len(merged) == len(masterTags) {
		return nil // nothing new to union
	}

	_, err = tx.ExecContext(ctx, `UPDATE events SET category_tags = ? WHERE id = ?`, strings.Join(merged, "\x1f"), masterID)
	return err
}

func readCategoryTags(ctx context.Context, tx *sql.Tx, eventID string) ([]string, error) {
	var tags sql.NullString
	if err := tx.QueryRowContext(ctx, `SELECT category_tags FROM events WHERE id = ?`, eventID).Scan(&tags); err != nil {
		return nil, fmt.Errorf("read category tags for %s: %w", eventID, err)
	}
	if !tags.Valid || tags.String == "" {
		return nil, nil
	}
	return strings.Split(tags.String, "\x1f"), nil
}

// copyMissingFields implements step 2: copy event_description, city to the
// master only when the master's own value is empty.
func copyMissingFields(ctx context.Context, tx *sql.Tx, masterID, duplicateID string) error {
	var masterDesc, masterCity sql.NullString
	var dupDesc, dupCity sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT event_description, city FROM events WHERE id = ?`, masterID).Scan(&masterDesc, &masterCity)
	if err != nil {
		return fmt.Errorf("read master fields for %s: %w", masterID, err)
	}
	err = tx.QueryRowContext(ctx, `SELECT event_description, city FROM events WHERE id = ?`, duplicateID).Scan(&dupDesc, &dupCity)
	if err != nil {
		return fmt.Errorf("read duplicate fields for %s: %w", duplicateID, err)
	}

	if (!masterDesc.Valid || masterDesc.String == "") && dupDesc.Valid && dupDesc.String != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE events SET event_description = ? WHERE id = ?`, dupDesc.String, masterID); err != nil {
			return fmt.Errorf("copy description to %s: %w", masterID, err)
		}
	}
	if (!masterCity.Valid || masterCity.String == "") && dupCity.Valid && dupCity.String != "" {
		if _, err := tx.ExecContext(ctx, `UPDATE events SET city = ? WHERE id = ?`, dupCity.String, masterID); err != nil {
			return fmt.Errorf("copy city to %s: %w", masterID, err)
		}
	}
	return nil
}

// migratePostLinks implements step 3: move every post link of the
// duplicate not already present on the master, then delete the duplicate's
// links.
func migratePostLinks(ctx context.Context, tx *sql.Tx, masterID, duplicateID string) error {
	rows, err := tx.QueryContext(ctx, `SELECT post_id FROM event_post_links WHERE event_id = ?`, duplicateID)
	if err != nil {
		return fmt.Errorf("read duplicate post links for %s: %w", duplicateID, err)
	}
	var dupPostIDs []string
	for rows.Next() {
		var postID string
		if err := rows.Scan(&postID); err != nil {
			rows.Close()
			return err
		}
		dupPostIDs = append(dupPostIDs, postID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, postID := range dupPostIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO event_post_links (event_id, post_id) VALUES (?, ?)
			 ON CONFLICT (event_id, post_id) DO NOTHING`, masterID, postID)
		if err != nil {
			return fmt.Errorf("migrate post link %s to master %s: %w", postID, masterID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_post_links WHERE event_id = ?`, duplicateID); err != nil {
		return fmt.Errorf("delete duplicate post links for %s: %w", duplicateID, err)
	}
	return nil
}

// migrateActorLinks implements step 4: add each duplicate actor link to the
// master unless it collides on (actor_handle, platform) or unknown_actor_id,
// then delete all of the duplicate's actor links regardless of outcome.
func migrateActorLinks(ctx context.Context, tx *sql.Tx, masterID, duplicateID string) error {
	masterKeys := make(map[string]bool)
	masterUnknownIDs := make(map[string]bool)

	mrows, err := tx.QueryContext(ctx, `SELECT actor_handle, platform, unknown_actor_id FROM event_actor_links WHERE event_id = ?`, masterID)
	if err != nil {
		return fmt.Errorf("read master actor links for %s: %w", masterID, err)
	}
	for mrows.Next() {
		var handle, platform string
		var unknownID sql.NullString
		if err := mrows.Scan(&handle, &platform, &unknownID); err != nil {
			mrows.Close()
			return err
		}
		masterKeys[handle+"|"+platform] = true
		if unknownID.Valid && unknownID.String != "" {
			masterUnknownIDs[unknownID.String] = true
		}
	}
	mrows.Close()
	if err := mrows.Err(); err != nil {
		return err
	}

	type dupActorLink struct {
		handle, platform, kind, actorType string
		actorID, unknownActorID           sql.NullString
	}
	drows, err := tx.QueryContext(ctx, `SELECT actor_handle, platform, kind, actor_type, actor_id, unknown_actor_id FROM event_actor_links WHERE event_id = ?`, duplicateID)
	if err != nil {
		return fmt.Errorf("read duplicate actor links for %s: %w", duplicateID, err)
	}
	var dupLinks []dupActorLink
	for drows.Next() {
		var l dupActorLink
		if err := drows.Scan(&l.handle, &l.platform, &l.kind, &l.actorType, &l.actorID, &l.unknownActorID); err != nil {
			drows.Close()
			return err
		}
		dupLinks = append(dupLinks, l)
	}
	drows.Close()
	if err := drows.Err(); err != nil {
		return err
	}

	for _, l := range dupLinks {
		key := l.handle + "|" + l.platform
		if masterKeys[key] {
			continue
		}
		if l.unknownActorID.Valid && l.unknownActorID.String != "" && masterUnknownIDs[l.unknownActorID.String] {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO event_actor_links (event_id, actor_handle, platform, kind, actor_type, actor_id, unknown_actor_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (event_id, actor_handle, platform) DO NOTHING`,
			masterID, l.handle, l.platform, l.kind, l.actorType, l.actorID, l.unknownActorID)
		if err != nil {
			return fmt.Errorf("migrate actor link %s/%s to master %s: %w", l.handle, l.platform, masterID, err)
		}
		masterKeys[key] = true
		if l.unknownActorID.Valid && l.unknownActorID.String != "" {
			masterUnknownIDs[l.unknownActorID.String] = true
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_actor_links WHERE event_id = ?`, duplicateID); err != nil {
		return fmt.Errorf("delete duplicate actor links for %s: %w", duplicateID, err)
	}
	return nil
}
