// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on deduplicate_events_with_gemini.py's get_duplicate_groups /
// get_group_details: reads the pre-computed potential_duplicate_groups and
// duplicate_group_pairs views (spec.md §4.G input).
package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// LoadGroups fetches duplicate groups scoring at least minScore, largest
// groups and highest scores first, optionally capped at limit (0 = no
// cap). The per-group pairwise similarity rows are loaded in the same pass.
func LoadGroups(ctx context.Context, gw *storage.Gateway, minScore float64, limit int) ([]models.DuplicateGroup, error) {
	var groups []models.DuplicateGroup

	query := `SELECT group_id, event_ids, max_similarity_score, avg_similarity_score, confidence_level, group_size
		FROM potential_duplicate_groups WHERE max_similarity_score >= ?
		ORDER BY group_size DESC, max_similarity_score DESC`
	args := []any{minScore}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	err := gw.WithRetry(ctx, "load_duplicate_groups", func(ctx context.Context) error {
		rows, err := gw.DB().QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var g models.DuplicateGroup
			var eventIDs string
			if err := rows.Scan(&g.GroupID, &eventIDs, &g.MaxSimilarityScore, &g.AvgSimilarityScore, &g.ConfidenceLevel, &g.GroupSize); err != nil {
				return err
			}
			g.EventIDs = strings.Split(eventIDs, "\x1f")
			groups = append(groups, g)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load duplicate groups: %w", err)
	}

	for i := range groups {
		pairs, err := loadGroupPairs(ctx, gw, groups[i].GroupID)
		if err != nil {
			return nil, err
		}
		groups[i].Pairs = pairs
	}

	return groups, nil
}

func loadGroupPairs(ctx context.Context, gw *storage.Gateway, groupID string) ([]models.DuplicateGroupPair, error) {
	var pairs []models.DuplicateGroupPair
	err := gw.WithRetry(ctx, "load_duplicate_group_pairs", func(ctx context.Context) error {
		rows, err := gw.DB().QueryContext(ctx, `SELECT event_id_a, event_id_b, overall_similarity_score
			FROM duplicate_group_pairs WHERE group_id = ? ORDER BY overall_similarity_score DESC`, groupID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var p models.DuplicateGroupPair
			if err := rows.Scan(&p.EventIDA, &p.EventIDB, &p.Similarity); err != nil {
				return err
			}
			pairs = append(pairs, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load group pairs for %s: %w", groupID, err)
	}
	return pairs, nil
}
