// Package pathutil builds canonical MFS paths for objects stored on the
// CAS node and rejects traversal attempts before they ever reach it.
package pathutil

import (
	"errors"
	"path"
	"strings"
)

// ErrInvalidSegment is returned when a path segment is unsafe to append:
// empty, "..", an absolute path, or containing a NUL byte.
var ErrInvalidSegment = errors.New("pathutil: invalid path segment")

// Normalize builds "/{prefix}/{bucket}/{key}", rejecting traversal.
//
// Each of prefix, bucket and key is pushed independently and checked; key
// may itself contain slashes (S3 object keys commonly do), so each of its
// slash-delimited parts is checked individually.
func Normalize(prefix, bucket, key string) (string, error) {
	var parts []string
	for _, seg := range []string{prefix, bucket} {
		if err := checkSegment(seg); err != nil {
			return "", err
		}
		parts = append(parts, seg)
	}
	for _, seg := range strings.Split(key, "/") {
		if err := checkSegment(seg); err != nil {
			return "", err
		}
		parts = append(parts, seg)
	}
	return path.Clean("/" + strings.Join(parts, "/")), nil
}

func checkSegment(seg string) error {
	if seg == "" || seg == "." || seg == ".." {
		return ErrInvalidSegment
	}
	if strings.Contains(seg, "\x00") {
		return ErrInvalidSegment
	}
	if strings.HasPrefix(seg, "/") {
		return ErrInvalidSegment
	}
	for _, part := range strings.Split(seg, "/") {
		if part == ".." {
			return ErrInvalidSegment
		}
	}
	return nil
}
