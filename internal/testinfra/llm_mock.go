// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus
//
// Adapted from the deleted webhook_server.go: the same httptest capture
// pattern, retargeted from Slack/Discord/Telegram webhook payloads to
// scripted Gemini-style tool-calling responses for internal/extract's
// tests.

package testinfra

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// LLMRequestCapture records one request the Extraction Engine sent to the
// mock LLM endpoint.
type LLMRequestCapture struct {
	Path string
	Body []byte
}

// MockLLMServer scripts a sequence of responses for testing
// internal/extract's tool-calling state machine without a live API key.
// Each call to the endpoint consumes the next response in Responses; once
// exhausted it replays the last one.
type MockLLMServer struct {
	Server    *httptest.Server
	Responses [][]byte
	Captures  []LLMRequestCapture

	mu    sync.Mutex
	index int
}

// NewMockLLMServer starts a mock LLM server that returns responses in
// order as they are added via QueueResponse.
func NewMockLLMServer(t *testing.T) *MockLLMServer {
	t.Helper()

	m := &MockLLMServer{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		m.mu.Lock()
		m.Captures = append(m.Captures, LLMRequestCapture{Path: r.URL.Path, Body: body})

		var resp []byte
		if len(m.Responses) > 0 {
			idx := m.index
			if idx >= len(m.Responses) {
				idx = len(m.Responses) - 1
			}
			resp = m.Responses[idx]
			m.index++
		}
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if resp == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(resp) //nolint:errcheck
	}))

	return m
}

// QueueResponse appends a JSON-encodable response to be served on the next
// request.
func (m *MockLLMServer) QueueResponse(v interface{}) {
	data, _ := json.Marshal(v)
	m.mu.Lock()
	m.Responses = append(m.Responses, data)
	m.mu.Unlock()
}

// QueueRawResponse appends a pre-encoded response body.
func (m *MockLLMServer) QueueRawResponse(body []byte) {
	m.mu.Lock()
	m.Responses = append(m.Responses, body)
	m.mu.Unlock()
}

// URL returns the mock server's base URL.
func (m *MockLLMServer) URL() string {
	return m.Server.URL
}

// Close shuts down the mock server.
func (m *MockLLMServer) Close() {
	m.Server.Close()
}

// GetCaptures returns every request the mock server has received so far.
func (m *MockLLMServer) GetCaptures() []LLMRequestCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]LLMRequestCapture, len(m.Captures))
	copy(result, m.Captures)
	return result
}

// RequestCount returns how many requests the mock server has received.
func (m *MockLLMServer) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Captures)
}
