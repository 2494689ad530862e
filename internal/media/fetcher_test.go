// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/civictrace/pipeline/internal/cache"
	"github.com/civictrace/pipeline/internal/models"
)

// fakeObjectStore is a minimal in-memory storage.ObjectStore for tests that
// never need to reach a real S3-compatible backend.
type fakeObjectStore struct {
	objects map[string][]byte // bucket/key -> bytes
	puts    int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) bk(bucket, key string) string { return bucket + "/" + key }

func (f *fakeObjectStore) Put(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	f.objects[f.bk(bucket, key)] = data
	f.puts++
	return f.PublicURL(bucket, key), nil
}

func (f *fakeObjectStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	return f.objects[f.bk(bucket, key)], nil
}

func (f *fakeObjectStore) List(_ context.Context, bucket, _ string) ([]string, error) {
	var keys []string
	prefix := bucket + "/"
	for k := range f.objects {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k[len(prefix):])
		}
	}
	return keys, nil
}

func (f *fakeObjectStore) Move(_ context.Context, bucket, srcKey, dstKey string) error {
	f.objects[f.bk(bucket, dstKey)] = f.objects[f.bk(bucket, srcKey)]
	delete(f.objects, f.bk(bucket, srcKey))
	return nil
}

func (f *fakeObjectStore) Delete(_ context.Context, bucket, key string) error {
	delete(f.objects, f.bk(bucket, key))
	return nil
}

func (f *fakeObjectStore) PublicURL(bucket, key string) string {
	return "https://media.example.org/" + bucket + "/" + key
}

func newTestFetcher(objects *fakeObjectStore) *Fetcher {
	f := NewFetcher(Config{Bucket: "instagram-media"}, nil, objects, zerolog.Nop())
	f.existingKeys = cache.NewTTL(existingKeysTTL)
	return f
}

func TestFetcherProcessPost_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("fake-image-bytes"))
	}))
	defer srv.Close()

	objects := newFakeObjectStore()
	f := newTestFetcher(objects)

	post := &models.Post{ID: "post-1", ExternalPostID: "ext-1", MediaURLs: []string{srv.URL + "/photo.jpg"}}
	f.processPost(context.Background(), post)

	stats := f.GetStats()
	if stats.PostsFetched != 1 {
		t.Errorf("PostsFetched = %d, want 1", stats.PostsFetched)
	}
	f.mu.Lock()
	url, ok := f.pending["post-1"]
	f.mu.Unlock()
	if !ok {
		t.Fatal("expected a pending update for post-1")
	}
	if objects.puts != 1 {
		t.Errorf("expected exactly one upload, got %d", objects.puts)
	}
	if url == "" {
		t.Error("expected a non-empty public URL")
	}
}

func TestFetcherProcessPost_AllTerminalMarksExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	objects := newFakeObjectStore()
	f := newTestFetcher(objects)

	post := &models.Post{ID: "post-2", ExternalPostID: "ext-2", MediaURLs: []string{srv.URL + "/gone.jpg"}}
	f.processPost(context.Background(), post)

	stats := f.GetStats()
	if stats.PostsExpired != 1 {
		t.Errorf("PostsExpired = %d, want 1", stats.PostsExpired)
	}
	f.mu.Lock()
	value := f.pending["post-2"]
	f.mu.Unlock()
	if value != models.MediaExpired {
		t.Errorf("pending value = %q, want %q", value, models.MediaExpired)
	}
}

func TestFetcherProcessPost_AlreadyExpiredEscalatesToPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	objects := newFakeObjectStore()
	f := newTestFetcher(objects)

	expired := models.MediaExpired
	post := &models.Post{
		ID:              "post-3",
		ExternalPostID:  "ext-3",
		MediaURLs:       []string{srv.URL + "/gone.jpg"},
		OfflineMediaURL: &expired,
	}
	f.processPost(context.Background(), post)

	stats := f.GetStats()
	if stats.PostsPermanentlyExpired != 1 {
		t.Errorf("PostsPermanentlyExpired = %d, want 1", stats.PostsPermanentlyExpired)
	}
	f.mu.Lock()
	value := f.pending["post-3"]
	f.mu.Unlock()
	if value != models.MediaPermanentlyExpired {
		t.Errorf("pending value = %q, want %q", value, models.MediaPermanentlyExpired)
	}
}

func TestFetcherProcessPost_NonTerminalFailureLeavesUnresolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	objects := newFakeObjectStore()
	f := newTestFetcher(objects)

	post := &models.Post{ID: "post-4", ExternalPostID: "ext-4", MediaURLs: []string{srv.URL + "/flaky.jpg"}}
	f.processPost(context.Background(), post)

	stats := f.GetStats()
	if stats.PostsUnresolved != 1 {
		t.Errorf("PostsUnresolved = %d, want 1", stats.PostsUnresolved)
	}
	f.mu.Lock()
	_, ok := f.pending["post-4"]
	f.mu.Unlock()
	if ok {
		t.Error("expected no pending update for a non-terminal failure (retried next run)")
	}
}

func TestFetcherProcessPost_SecondURLSucceedsAfterFirstFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	objects := newFakeObjectStore()
	f := newTestFetcher(objects)

	post := &models.Post{
		ID:             "post-5",
		ExternalPostID: "ext-5",
		MediaURLs:      []string{srv.URL + "/bad.jpg", srv.URL + "/good.jpg"},
	}
	f.processPost(context.Background(), post)

	stats := f.GetStats()
	if stats.PostsFetched != 1 {
		t.Errorf("PostsFetched = %d, want 1", stats.PostsFetched)
	}
	f.mu.Lock()
	_, ok := f.pending["post-5"]
	f.mu.Unlock()
	if !ok {
		t.Error("expected the second URL's success to be recorded")
	}
}

func TestFetcherProcessPost_IdempotentShortCircuit(t *testing.T) {
	objects := newFakeObjectStore()
	f := newTestFetcher(objects)
	f.existingKeys.Set("ext-6.jpg", struct{}{})

	post := &models.Post{ID: "post-6", ExternalPostID: "ext-6", MediaURLs: []string{"https://unreachable.invalid/should-not-be-fetched.jpg"}}
	f.processPost(context.Background(), post)

	stats := f.GetStats()
	if stats.PostsFetched != 1 {
		t.Errorf("PostsFetched = %d, want 1 (via short-circuit)", stats.PostsFetched)
	}
	if objects.puts != 0 {
		t.Errorf("expected no upload when the key already exists, got %d puts", objects.puts)
	}
}

func TestFetcherRun_NoCandidatesSkipsEverything(t *testing.T) {
	objects := newFakeObjectStore()
	f := newTestFetcher(objects)

	already := "https://cdn.example.org/already.jpg"
	posts := []*models.Post{
		{ID: "post-7", ExternalPostID: "ext-7", MediaURLs: nil},
		{ID: "post-8", ExternalPostID: "ext-8", MediaURLs: []string{"https://x/1.jpg"}, OfflineMediaURL: &already},
	}

	stats, err := f.Run(context.Background(), posts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.PostsConsidered != 0 {
		t.Errorf("PostsConsidered = %d, want 0 (neither post needs a fetch)", stats.PostsConsidered)
	}
}
