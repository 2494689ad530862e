// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import "context"

// PageFunc fetches one page of size limit starting at offset. It returns
// fewer than limit items to signal the final page.
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// FetchAll iterates range(offset, offset+batch-1) pages in order until a
// short page is returned, mirroring the gateway's fetch_all helper from
// spec.md §4.A. The supplied visit function is called once per page; FetchAll
// stops as soon as visit returns an error or a page shorter than pageSize
// is seen.
func FetchAll[T any](ctx context.Context, pageSize int, fetch PageFunc[T], visit func([]T) error) error {
	if pageSize <= 0 {
		pageSize = 500
	}
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := fetch(ctx, offset, pageSize)
		if err != nil {
			return err
		}
		if len(page) > 0 {
			if err := visit(page); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		offset += pageSize
	}
}

// ChunkStrings splits ids into chunks of at most size, used for the ≤50 and
// ≤100 ID-chunk limits called out throughout spec.md §4.
func ChunkStrings(ids []string, size int) [][]string {
	if size <= 0 {
		size = 100
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
