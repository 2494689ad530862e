// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryObjectStore is an in-memory ObjectStore used by tests across every
// package that depends on storage.ObjectStore (ingest archiving, media
// fetch idempotence).
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryObjectStore returns an empty in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

func (m *MemoryObjectStore) objKey(bucket, key string) string {
	return bucket + "/" + key
}

func (m *MemoryObjectStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://media.test/%s/%s", bucket, key)
}

func (m *MemoryObjectStore) Put(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[m.objKey(bucket, key)] = append([]byte(nil), data...)
	return m.PublicURL(bucket, key), nil
}

func (m *MemoryObjectStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[m.objKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	return data, nil
}

func (m *MemoryObjectStore) List(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	full := m.objKey(bucket, prefix)
	for k := range m.objects {
		if strings.HasPrefix(k, bucket+"/") && strings.HasPrefix(k, full) {
			keys = append(keys, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	return keys, nil
}

func (m *MemoryObjectStore) Move(ctx context.Context, bucket, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[m.objKey(bucket, srcKey)]
	if !ok {
		return fmt.Errorf("object not found: %s/%s", bucket, srcKey)
	}
	m.objects[m.objKey(bucket, dstKey)] = data
	delete(m.objects, m.objKey(bucket, srcKey))
	return nil
}

func (m *MemoryObjectStore) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, m.objKey(bucket, key))
	return nil
}

var _ ObjectStore = (*MemoryObjectStore)(nil)
