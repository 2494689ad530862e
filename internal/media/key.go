// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later

package media

import (
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
)

// deterministicKey builds the object-store key spec.md §4.C names:
// "{external_post_id}[_{index}].{ext}". index is omitted for the first
// (index 0) candidate URL so a post's primary media item keeps the
// shortest, most readable key.
func deterministicKey(externalPostID string, index int, ext string) string {
	if index == 0 {
		return fmt.Sprintf("%s.%s", externalPostID, ext)
	}
	return fmt.Sprintf("%s_%d.%s", externalPostID, index, ext)
}

// extFromURLOrContentType picks a file extension, preferring the source
// URL's own extension and falling back to sniffing the response
// Content-Type, defaulting to "jpg" when neither is determinable (the
// overwhelming majority of scraped media is JPEG).
func extFromURLOrContentType(url, contentType string) string {
	if ext := strings.TrimPrefix(path.Ext(strings.SplitN(url, "?", 2)[0]), "."); ext != "" && len(ext) <= 5 {
		return strings.ToLower(ext)
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		if exts, extErr := mime.ExtensionsByType(mediaType); extErr == nil && len(exts) > 0 {
			return strings.TrimPrefix(exts[0], ".")
		}
	}
	return "jpg"
}

// isTerminalStatus reports whether an HTTP status code means the media item
// is permanently gone rather than transiently unreachable (spec.md §4.C).
func isTerminalStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return true
	default:
		return false
	}
}
