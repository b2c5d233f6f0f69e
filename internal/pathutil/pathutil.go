// Package pathutil normalizes and validates user-supplied folder/file paths.
// It is the single chokepoint where traversal attacks are foreclosed: every
// path-bearing input must pass through Normalize before reaching the file store.
package pathutil

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned for paths with empty segments, traversal
// markers, absolute prefixes, or over-long segments.
var ErrInvalidPath = errors.New("invalid path")

// MaxSegmentLen bounds a single path segment. Matches common filesystem limits.
const MaxSegmentLen = 255

// Normalize validates raw and returns its canonical form: forward slashes,
// no leading/trailing slash, no empty segments. The empty string is the root
// folder and is valid.
func Normalize(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	raw = strings.ReplaceAll(raw, `\`, "/")
	if strings.HasPrefix(raw, "/") {
		return "", fmt.Errorf("%w: absolute path %q", ErrInvalidPath, raw)
	}
	if strings.Contains(raw, "\x00") {
		return "", fmt.Errorf("%w: NUL byte", ErrInvalidPath)
	}
	segs := strings.Split(strings.TrimSuffix(raw, "/"), "/")
	for _, s := range segs {
		switch {
		case s == "":
			return "", fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, raw)
		case s == "." || s == "..":
			return "", fmt.Errorf("%w: traversal segment in %q", ErrInvalidPath, raw)
		case len(s) > MaxSegmentLen:
			return "", fmt.Errorf("%w: segment exceeds %d bytes", ErrInvalidPath, MaxSegmentLen)
		}
	}
	return strings.Join(segs, "/"), nil
}

// SplitFolderAndName splits a normalized full path into its owning folder
// path and final name. SplitFolderAndName("docs/2024/report.pdf") returns
// ("docs/2024", "report.pdf"); a bare name has folder "".
func SplitFolderAndName(full string) (folder, name string) {
	i := strings.LastIndexByte(full, '/')
	if i < 0 {
		return "", full
	}
	return full[:i], full[i+1:]
}

// IsAncestorOf reports whether folder a strictly contains b. The root ""
// is an ancestor of every non-root path. Both arguments must be normalized.
func IsAncestorOf(a, b string) bool {
	if a == b {
		return false
	}
	if a == "" {
		return b != ""
	}
	return strings.HasPrefix(b, a+"/")
}

// Ancestors returns every proper ancestor of the normalized folder path,
// outermost first, excluding the root. Ancestors("a/b/c") is ["a", "a/b"].
func Ancestors(folder string) []string {
	if folder == "" {
		return nil
	}
	var out []string
	for i, c := range folder {
		if c == '/' {
			out = append(out, folder[:i])
		}
	}
	return out
}
