// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package testinfra provides test infrastructure for the pipeline:
// containerized dependencies for integration tests, and lightweight
// in-process mocks for unit tests.
//
// # NATS Container
//
// NATSContainer starts a JetStream-enabled broker for testing
// internal/workerpool's batch dispatch queue end to end:
//
//	func TestWorkerPoolDispatch(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    broker, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer broker.Terminate(ctx)
//
//	    pub, err := workerpool.NewPublisher(workerpool.DefaultPublisherConfig(broker.URL), nil)
//	    // ...
//	}
//
// # Mock LLM Server
//
// MockLLMServer scripts tool-calling responses for internal/extract's
// tests without a live API key or network access — no Docker required:
//
//	mock := testinfra.NewMockLLMServer(t)
//	defer mock.Close()
//	mock.QueueResponse(toolCallResponse)
//	mock.QueueResponse(finalJSONResponse)
//
// # Benefits Over Hand-Rolled Mocks
//
// Using real containers for the queue layer validates the actual NATS/
// JetStream wire contract instead of a hand-maintained stand-in; the
// scripted HTTP mock keeps the LLM tool-calling loop testable without
// burning API quota or requiring network access.
//
// # CI Considerations
//
// Container-backed tests require Docker and are gated behind the
// "integration" build tag; they skip gracefully via SkipIfNoDocker when
// Docker is unavailable. The LLM mock has no such requirement and runs in
// the default test suite.
package testinfra
