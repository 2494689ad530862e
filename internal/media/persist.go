// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Flushes accumulated offline_media_url writes as one bulk UPDATE keyed on
// post.id (spec.md §4.C), rather than through storage.Gateway.UpsertBatch:
// that helper reconstructs a full INSERT row per call, which would require
// supplying every NOT NULL column on the posts table just to touch one
// column. A single CASE-WHEN UPDATE mirrors the bulk-update RPC spec.md §4.A
// describes for the Storage Gateway's own "bulk update" contract.

package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/civictrace/pipeline/internal/storage"
)

// bulkUpdateOfflineMediaURL writes every (postID -> value) pair in updates
// to the posts table in a single statement.
func bulkUpdateOfflineMediaURL(ctx context.Context, gw *storage.Gateway, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	caseParts := make([]string, 0, len(updates))
	caseArgs := make([]any, 0, len(updates)*2)
	inPlaceholders := make([]string, 0, len(updates))
	inArgs := make([]any, 0, len(updates))

	for id, value := range updates {
		caseParts = append(caseParts, "WHEN ? THEN ?")
		caseArgs = append(caseArgs, id, value)
		inPlaceholders = append(inPlaceholders, "?")
		inArgs = append(inArgs, id)
	}

	args := append(caseArgs, inArgs...)

	query := fmt.Sprintf(
		"UPDATE posts SET offline_media_url = CASE id %s ELSE offline_media_url END WHERE id IN (%s)",
		strings.Join(caseParts, " "),
		strings.Join(inPlaceholders, ","),
	)

	_, err := gw.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("bulk update offline_media_url for %d posts: %w", len(updates), err)
	}
	return nil
}
