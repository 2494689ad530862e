// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on spec.md §9's "Global mutable caches" design note: the slug
// cache is an explicitly owned struct behind an RW-lock, passed through the
// engine rather than reached through a process global, replacing the
// teacher domain's SimpleSlugManager module-level cache.

package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// slugCacheTTL bounds how long SlugCache serves a stale view before
// Reload's no-op guard lets a new load through (spec.md §4.F.3 step 1:
// "no-op if recently reloaded").
const slugCacheTTL = 5 * time.Minute

// SlugCache holds every cacheable dynamic slug (spec.md §4.F.4: only
// models.CacheableParentTags parent tags are kept here) in memory, reloaded
// on a TTL rather than per-batch.
type SlugCache struct {
	mu          sync.RWMutex
	lastReload  time.Time
	byFullSlug  map[string]models.DynamicSlug
}

// NewSlugCache returns an empty cache; call Reload before first use.
func NewSlugCache() *SlugCache {
	return &SlugCache{byFullSlug: make(map[string]models.DynamicSlug)}
}

// Reload re-reads every cacheable dynamic slug from storage, unless the
// cache was populated within slugCacheTTL (spec.md §4.F.3 step 1).
func (c *SlugCache) Reload(ctx context.Context, gw *storage.Gateway) error {
	c.mu.RLock()
	fresh := !c.lastReload.IsZero() && time.Since(c.lastReload) < slugCacheTTL
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	rows, err := gw.DB().QueryContext(ctx, `SELECT parent_tag, slug_identifier, full_slug FROM dynamic_slugs`)
	if err != nil {
		return fmt.Errorf("reload slug cache: %w", err)
	}
	defer rows.Close()

	loaded := make(map[string]models.DynamicSlug)
	for rows.Next() {
		var s models.DynamicSlug
		if err := rows.Scan(&s.ParentTag, &s.SlugIdentifier, &s.FullSlug); err != nil {
			return fmt.Errorf("scan dynamic slug row: %w", err)
		}
		if models.CacheableParentTags[s.ParentTag] {
			loaded[s.FullSlug] = s
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.byFullSlug = loaded
	c.lastReload = time.Now()
	c.mu.Unlock()
	return nil
}

// Has reports whether fullSlug is already known to the cache.
func (c *SlugCache) Has(fullSlug string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byFullSlug[fullSlug]
	return ok
}

// Put records a newly UPSERTed slug so subsequent lookups in the same run
// see it without waiting for the next TTL reload.
func (c *SlugCache) Put(slug models.DynamicSlug) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byFullSlug[slug.FullSlug] = slug
}
