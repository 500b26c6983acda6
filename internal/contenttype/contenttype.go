// Package contenttype resolves a PutObject's content type the way
// spec.md §4.6 specifies: request header, then (if enabled) a guess from
// the key's extension, then a fixed fallback.
//
// Adapted from the teacher's pkg/mime package, trimmed to the one
// resolution path this gateway needs.
package contenttype

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultContentType is used when nothing else resolves a type.
const DefaultContentType = "application/octet-stream"

// FromExtension guesses a MIME type from key's file extension, returning
// DefaultContentType if the extension is unknown or absent.
func FromExtension(key string) string {
	ext := filepath.Ext(key)
	if ext == "" {
		return DefaultContentType
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return DefaultContentType
	}
	if idx := strings.Index(t, ";"); idx != -1 {
		t = strings.TrimSpace(t[:idx])
	}
	return t
}

// Resolve implements spec.md §4.6's content-type resolution: the
// request's Content-Type header if present, else (if autoMime) a guess
// from key's extension, else the default.
func Resolve(headerContentType, key string, autoMime bool) string {
	if headerContentType != "" {
		return headerContentType
	}
	if autoMime {
		return FromExtension(key)
	}
	return DefaultContentType
}
