// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on original_source/automation/scripts/migrate_images_to_r2.py's
// download-then-upload-then-writeback loop (including its pre-loaded
// existing-key idempotence check and terminal-status bookkeeping), rewritten
// over bounded Go channels in place of Python's asyncio.Semaphore, following
// the teacher's own channel-based concurrency gating style rather than
// importing golang.org/x/sync/semaphore.

package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/civictrace/pipeline/internal/cache"
	"github.com/civictrace/pipeline/internal/metrics"
	"github.com/civictrace/pipeline/internal/models"
	"github.com/civictrace/pipeline/internal/storage"
)

// existingKeysTTL is long enough to outlive a single Run: the preloaded
// bucket listing only needs to survive one subprocess invocation.
const existingKeysTTL = 24 * time.Hour

// Fetcher implements the Media Fetcher component.
type Fetcher struct {
	cfg     Config
	gw      *storage.Gateway
	objects storage.ObjectStore
	client  *http.Client
	log     zerolog.Logger

	downloadSem chan struct{}
	uploadSem   chan struct{}

	existingKeys cache.Cacher

	mu      sync.Mutex
	stats   Stats
	pending map[string]string // postID -> offline_media_url value, flushed in batches
}

// NewFetcher builds a Fetcher ready to Run.
func NewFetcher(cfg Config, gw *storage.Gateway, objects storage.ObjectStore, log zerolog.Logger) *Fetcher {
	cfg = cfg.withDefaults()
	return &Fetcher{
		cfg:         cfg,
		gw:          gw,
		objects:     objects,
		client:      newHTTPClient(),
		log:         log.With().Str("component", "media_fetcher").Logger(),
		downloadSem: make(chan struct{}, cfg.DownloadConcurrency),
		uploadSem:   make(chan struct{}, cfg.UploadConcurrency),
		pending:     make(map[string]string),
	}
}

// Run processes every post in posts that still needs a media fetch
// (models.Post.NeedsMediaFetch), in sub-batches of cfg.SubBatchSize with a
// pause between sub-batches to smooth outbound request rate.
func (f *Fetcher) Run(ctx context.Context, posts []*models.Post) (*Stats, error) {
	f.mu.Lock()
	f.stats = Stats{StartTime: time.Now()}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.stats.EndTime = time.Now()
		f.mu.Unlock()
	}()

	keys, err := f.objects.List(ctx, f.cfg.Bucket, "")
	if err != nil {
		return f.GetStats(), fmt.Errorf("preload existing keys in %s: %w", f.cfg.Bucket, err)
	}
	f.existingKeys = cache.NewTTL(existingKeysTTL)
	for _, k := range keys {
		f.existingKeys.Set(k, struct{}{})
	}

	candidates := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if needsFetch(p) {
			candidates = append(candidates, p)
		}
	}
	f.incr(func(s *Stats) { s.PostsConsidered = int64(len(candidates)) })

	for start := 0; start < len(candidates); start += f.cfg.SubBatchSize {
		end := start + f.cfg.SubBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		sub := candidates[start:end]

		var wg sync.WaitGroup
		for _, post := range sub {
			wg.Add(1)
			go func(p *models.Post) {
				defer wg.Done()
				f.processPost(ctx, p)
			}(post)
		}
		wg.Wait()

		if err := f.flushIfDue(ctx, false); err != nil {
			return f.GetStats(), err
		}

		if end < len(candidates) {
			select {
			case <-ctx.Done():
				return f.GetStats(), ctx.Err()
			case <-time.After(f.cfg.SubBatchPause):
			}
		}
	}

	if err := f.flushIfDue(ctx, true); err != nil {
		return f.GetStats(), err
	}

	f.log.Info().
		Int64("considered", f.GetStats().PostsConsidered).
		Int64("fetched", f.GetStats().PostsFetched).
		Int64("expired", f.GetStats().PostsExpired).
		Int64("permanently_expired", f.GetStats().PostsPermanentlyExpired).
		Msg("media fetch run completed")

	return f.GetStats(), nil
}

// needsFetch is the Media Fetcher's own candidate predicate. It differs
// from models.Post.NeedsMediaFetch (which treats EXPIRED as already
// terminal) by re-admitting EXPIRED posts for one more attempt, since
// spec.md §4.C requires an EXPIRED post to escalate to
// PERMANENTLY_EXPIRED only after a second all-terminal failure. A
// PERMANENTLY_EXPIRED post is never retried.
func needsFetch(post *models.Post) bool {
	if len(post.MediaURLs) == 0 {
		return false
	}
	if post.OfflineMediaURL == nil || *post.OfflineMediaURL == "" {
		return true
	}
	return *post.OfflineMediaURL == models.MediaExpired
}

// processPost downloads one representative media item for post, following
// spec.md §4.C: try each candidate URL in order; the first success wins even
// if later/earlier URLs failed; if every URL fails with a terminal status
// (403/404/410), the post's offline_media_url becomes EXPIRED (or
// PERMANENTLY_EXPIRED if it was already EXPIRED); any non-terminal failure
// leaves the post untouched for retry on a future run.
func (f *Fetcher) processPost(ctx context.Context, post *models.Post) {
	allTerminal := true
	anyAttempted := false

	for i, url := range post.MediaURLs {
		if publicURL, ok := f.shortCircuitExisting(post.ExternalPostID, i); ok {
			f.recordSuccess(post.ID, publicURL)
			return
		}

		anyAttempted = true
		publicURL, terminal, err := f.fetchAndUpload(ctx, post.ExternalPostID, i, url)
		if err == nil {
			f.recordSuccess(post.ID, publicURL)
			return
		}
		if !terminal {
			allTerminal = false
		}
		f.log.Debug().Str("post_id", post.ID).Str("url", url).Err(err).Msg("media candidate failed")
	}

	if !anyAttempted || !allTerminal {
		f.incr(func(s *Stats) { s.PostsUnresolved++ })
		return
	}

	next := models.MediaExpired
	if post.OfflineMediaURL != nil && *post.OfflineMediaURL == models.MediaExpired {
		next = models.MediaPermanentlyExpired
	}
	f.recordTerminal(post.ID, next)
}

// shortCircuitExisting reports whether the deterministic key for
// (externalPostID, index) already exists in the pre-loaded bucket listing,
// in which case no download is needed.
func (f *Fetcher) shortCircuitExisting(externalPostID string, index int) (string, bool) {
	for _, ext := range []string{"jpg", "jpeg", "png", "gif", "webp", "mp4"} {
		key := deterministicKey(externalPostID, index, ext)
		if _, ok := f.existingKeys.Get(key); ok {
			return f.objects.PublicURL(f.cfg.Bucket, key), true
		}
	}
	return "", false
}

// fetchAndUpload downloads url (gated by downloadSem) and uploads it to the
// object store (gated by uploadSem), returning the resulting public URL.
// terminal reports whether a download failure was a terminal HTTP status.
func (f *Fetcher) fetchAndUpload(ctx context.Context, externalPostID string, index int, url string) (publicURL string, terminal bool, err error) {
	data, contentType, terminal, err := f.download(ctx, url)
	if err != nil {
		if terminal {
			return "", true, err
		}
		f.incr(func(s *Stats) { s.DownloadErrors++ })
		return "", false, err
	}

	key := deterministicKey(externalPostID, index, extFromURLOrContentType(url, contentType))

	f.uploadSem <- struct{}{}
	defer func() { <-f.uploadSem }()

	publicURL, err = f.objects.Put(ctx, f.cfg.Bucket, key, data, contentType)
	if err != nil {
		f.incr(func(s *Stats) { s.UploadErrors++ })
		return "", false, fmt.Errorf("upload %s: %w", key, err)
	}
	metrics.MediaUploadsTotal.Inc()
	f.existingKeys.Set(key, struct{}{})
	return publicURL, false, nil
}

func (f *Fetcher) download(ctx context.Context, url string) (data []byte, contentType string, terminal bool, err error) {
	f.downloadSem <- struct{}{}
	defer func() { <-f.downloadSem }()

	metrics.MediaConcurrentDownloads.Inc()
	defer metrics.MediaConcurrentDownloads.Dec()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.RecordMediaDownload(time.Since(start), "request_build_error")
		return nil, "", false, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordMediaDownload(time.Since(start), "timeout")
		return nil, "", false, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if isTerminalStatus(resp.StatusCode) {
			metrics.RecordMediaDownload(time.Since(start), "not_found")
			return nil, "", true, fmt.Errorf("fetch %s: terminal status %d", url, resp.StatusCode)
		}
		metrics.RecordMediaDownload(time.Since(start), "server_error")
		return nil, "", false, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordMediaDownload(time.Since(start), "read_error")
		return nil, "", false, fmt.Errorf("read body for %s: %w", url, err)
	}
	metrics.RecordMediaDownload(time.Since(start), "")
	return body, resp.Header.Get("Content-Type"), false, nil
}

func (f *Fetcher) recordSuccess(postID, publicURL string) {
	f.mu.Lock()
	f.pending[postID] = publicURL
	f.stats.PostsFetched++
	f.mu.Unlock()
}

func (f *Fetcher) recordTerminal(postID, sentinel string) {
	f.mu.Lock()
	f.pending[postID] = sentinel
	if sentinel == models.MediaPermanentlyExpired {
		f.stats.PostsPermanentlyExpired++
	} else {
		f.stats.PostsExpired++
	}
	f.mu.Unlock()
}

func (f *Fetcher) incr(fn func(*Stats)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.stats)
}

// GetStats returns a copy of the current run's statistics.
func (f *Fetcher) GetStats() *Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := f.stats
	return &stats
}

// flushIfDue writes the buffered offline_media_url updates to the database
// once cfg.FlushSize entries have accumulated, or unconditionally when
// force is true (end of run).
func (f *Fetcher) flushIfDue(ctx context.Context, force bool) error {
	f.mu.Lock()
	if !force && len(f.pending) < f.cfg.FlushSize {
		f.mu.Unlock()
		return nil
	}
	batch := f.pending
	f.pending = make(map[string]string)
	f.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return f.gw.WithRetry(ctx, "media:flush_offline_urls", func(ctx context.Context) error {
		return bulkUpdateOfflineMediaURL(ctx, f.gw, batch)
	})
}
