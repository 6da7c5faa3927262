// Package routepath normalizes the paths Waypoint matches on.
//
// Route definitions and navigation targets both pass through
// CanonicalizePath, so "/about/", "//about" and "/x/../about" all resolve
// to the record registered as "/about".
package routepath

import (
	"errors"
	"strings"
)

// Result contains the result of path canonicalization.
type Result struct {
	// Path is the canonicalized path (without query string).
	Path string

	// Query is the query string (without leading "?").
	Query string

	// Changed indicates if the path was modified during canonicalization.
	Changed bool
}

// Path canonicalization errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
)

// CanonicalizePath normalizes a location path.
//
// The following transformations are applied:
//   - Ensure a leading slash
//   - Collapse multiple slashes (/blog//post → /blog/post)
//   - Remove "." segments and resolve ".." segments
//   - Remove trailing slash (except for root "/")
//
// Backslashes, NUL bytes, malformed percent-escapes and ".." segments that
// climb above root are rejected. A query string is split off and returned
// untouched.
func CanonicalizePath(input string) (Result, error) {
	if input == "" {
		return Result{Path: "/", Changed: true}, nil
	}

	path, query, _ := strings.Cut(input, "?")

	if strings.Contains(path, "\\") {
		return Result{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Result{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return Result{}, err
		}
	}

	original := path
	segments := strings.Split(path, "/")
	kept := make([]string, 0, len(segments))

	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(kept) == 0 {
				return Result{}, ErrPathEscapesRoot
			}
			kept = kept[:len(kept)-1]
		default:
			kept = append(kept, seg)
		}
	}

	path = "/" + strings.Join(kept, "/")

	return Result{
		Path:    path,
		Query:   query,
		Changed: path != original,
	}, nil
}

// Join appends a route segment to its parent's full path and canonicalizes
// the result. The segment may be written with or without a leading slash;
// an empty segment yields the parent path itself.
func Join(parent, segment string) (string, error) {
	if parent == "" {
		parent = "/"
	}
	res, err := CanonicalizePath(strings.TrimSuffix(parent, "/") + "/" + strings.TrimPrefix(segment, "/"))
	if err != nil {
		return "", err
	}
	if res.Query != "" {
		return "", ErrInvalidPath
	}
	return res.Path, nil
}

// ValidateTarget canonicalizes a navigation target. Targets must be
// app-relative: absolute URLs and protocol-relative "//host" forms are
// rejected.
func ValidateTarget(target string) (Result, error) {
	if strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "//") {
		return Result{}, ErrInvalidPath
	}
	if !strings.HasPrefix(target, "/") {
		return Result{}, ErrInvalidPath
	}
	return CanonicalizePath(target)
}

// SplitPathAndQuery splits a path into path and query components.
// The query is returned without the leading "?".
func SplitPathAndQuery(input string) (path, query string) {
	path, query, _ = strings.Cut(input, "?")
	return path, query
}

// validatePercentEscapes checks that every '%' is followed by two hex digits.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
