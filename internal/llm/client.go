// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Client issues one turn of a tool-calling exchange against an LLM backend.
// The Extraction Engine's loop (internal/extract) owns conversation state;
// Client itself is stateless across calls.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// GenAIClient implements Client against Gemini via google.golang.org/genai,
// lazily resolving its model handle on first use (spec.md §4.E worker
// state: model_handle).
type GenAIClient struct {
	cfg    Config
	apiKey string

	client *genai.Client
}

// NewGenAIClient builds a client bound to one API key. The underlying
// genai.Client is not created until the first Generate call, matching the
// teacher's lazy-resource-acquisition style elsewhere (each worker owns one
// key and should not pay connection-setup cost for keys it never uses).
func NewGenAIClient(apiKey string, cfg Config) *GenAIClient {
	return &GenAIClient{cfg: cfg.WithDefaults(), apiKey: apiKey}
}

func (c *GenAIClient) ensureClient(ctx context.Context) error {
	if c.client != nil {
		return nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("create genai client: %w", err)
	}
	c.client = client
	return nil
}

// Generate issues one turn, retrying transient errors per Config
// (spec.md §4.F.3 "Transient failure retries").
func (c *GenAIClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := c.ensureClient(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := c.generateOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isConnectionError(err) {
			return nil, err
		}

		delay := c.cfg.backoffDelay(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("llm generate: exhausted %d retries: %w", c.cfg.MaxRetries, lastErr)
}

// generateOnce performs its own bounded inner retry for connection errors
// specifically, per spec.md §4.F.3's two-tier retry policy, before handing
// control back to Generate's outer loop.
func (c *GenAIClient) generateOnce(ctx context.Context, req Request) (*Response, error) {
	contents := buildContents(req)
	config := buildGenerateConfig(req)

	var lastErr error
	for attempt := 0; attempt < c.cfg.InnerConnectionAttempts; attempt++ {
		result, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, config)
		if err == nil {
			return parseResponse(result)
		}
		lastErr = err
		if !isConnectionError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func buildContents(req Request) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(req.SystemPrompt + "\n\n" + req.UserContent)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	if len(req.ToolResponses) > 0 {
		for _, tr := range req.ToolResponses {
			contents = append(contents, genai.NewContentFromFunctionResponse(tr.Name, tr.Result, genai.RoleUser))
		}
	}
	return contents
}

func buildGenerateConfig(req Request) *genai.GenerateContentConfig {
	if len(req.Tools) == 0 {
		return &genai.GenerateContentConfig{}
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
	for _, t := range req.Tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schemaFromMap(t.Parameters),
		})
	}
	return &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{FunctionDeclarations: decls}},
	}
}

func schemaFromMap(params map[string]any) *genai.Schema {
	if params == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: schemaPropertiesFromMap(params)}
}

func schemaPropertiesFromMap(params map[string]any) map[string]*genai.Schema {
	props := make(map[string]*genai.Schema, len(params))
	for name := range params {
		props[name] = &genai.Schema{Type: genai.TypeString}
	}
	return props
}

func parseResponse(result *genai.GenerateContentResponse) (*Response, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, errors.New("llm response carried no candidates")
	}

	resp := &Response{}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
			continue
		}
		if part.Text != "" {
			resp.Text += part.Text
		}
	}
	return resp, nil
}

// isConnectionError reports whether err looks like a transient network
// failure worth retrying, mirroring storage.isConnectionError's
// string-classification approach rather than a type assertion, since the
// genai SDK does not guarantee its transport errors implement net.Error.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"server disconnected",
		"timeout",
		"eof",
		"i/o timeout",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
