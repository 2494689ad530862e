// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Grounded on spec.md §4.F.1's "PIL-style resize pipeline: JPEG-normalized,
// <=1024x1024, 85% quality". The HTTP client pooling mirrors
// internal/media/client.go's connection-pool discipline, applied here to
// the one-image-per-post fetch the prompt assembler performs.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	"github.com/civictrace/pipeline/internal/llm"
)

const (
	maxImageDimension = 1024
	jpegQuality       = 85
	maxImageBytes     = 20 << 20 // refuse to decode absurdly large payloads
)

func newImageHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 20 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        150,
			MaxIdleConnsPerHost: 50,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// fetchAndResizeImage downloads url and normalizes it to a JPEG no larger
// than 1024x1024 at 85% quality, matching the teacher domain's PIL
// equivalent. A download or decode failure is not fatal to the batch: the
// caller simply omits the image from that post's prompt content.
func fetchAndResizeImage(ctx context.Context, client *http.Client, url string) (llm.ImagePart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return llm.ImagePart{}, fmt.Errorf("build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return llm.ImagePart{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return llm.ImagePart{}, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return llm.ImagePart{}, fmt.Errorf("read image body: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return llm.ImagePart{}, fmt.Errorf("decode image: %w", err)
	}

	resized := imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return llm.ImagePart{}, fmt.Errorf("encode resized jpeg: %w", err)
	}

	return llm.ImagePart{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}
