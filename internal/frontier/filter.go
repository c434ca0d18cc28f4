package frontier

import (
	"net/url"
	"path/filepath"
	"strings"
)

// DefaultSkipPatterns are substrings that exclude a URL from the frontier:
// non-document link schemes, fragment links and binary or media files.
var DefaultSkipPatterns = []string{
	"javascript:", "mailto:", "#", "tel:",
	".pdf", ".zip", ".jpg", ".png", ".gif",
}

// Filter is the URL admission predicate.
// It is pure and stateless: the same configuration and input always give
// the same answer, and nothing is cached between calls.
type Filter struct {
	// host is the only host whose URLs are admitted.
	host string

	// pathPrefix is the documentation root every admitted path starts with.
	pathPrefix string

	// skip are lower-cased substrings that reject a URL.
	skip []string

	// ignorePatterns are glob patterns matched against the URL path.
	ignorePatterns []string
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithIgnorePatterns adds glob path patterns that reject a URL.
// Patterns use the forms "/dir/*", "*.ext" and filepath.Match syntax.
func WithIgnorePatterns(patterns []string) FilterOption {
	return func(f *Filter) {
		f.ignorePatterns = append([]string(nil), patterns...)
	}
}

// NewFilter creates a Filter admitting URLs on host whose path starts with
// pathPrefix and that contain none of the skip substrings.
func NewFilter(host, pathPrefix string, skip []string, opts ...FilterOption) *Filter {
	f := &Filter{
		host:       strings.ToLower(host),
		pathPrefix: pathPrefix,
		skip:       make([]string, 0, len(skip)),
	}
	for _, s := range skip {
		if s == "" {
			continue
		}
		f.skip = append(f.skip, strings.ToLower(s))
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Accept reports whether candidate may enter the frontier.
//
// Rules, applied in order:
//  1. Reject if the URL does not parse or its host differs from the target host.
//  2. Reject if the path does not start with the configured prefix.
//  3. Reject if the URL contains any skip substring.
//  4. Reject if the path matches any ignore pattern.
//  5. Accept otherwise.
func (f *Filter) Accept(candidate string) bool {
	if candidate == "" {
		return false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}

	if !strings.EqualFold(u.Host, f.host) {
		return false
	}

	if !strings.HasPrefix(u.Path, f.pathPrefix) {
		return false
	}

	lower := strings.ToLower(candidate)
	for _, s := range f.skip {
		if strings.Contains(lower, s) {
			return false
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	return true
}

// matchPattern checks if a path matches a glob pattern.
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - other patterns use filepath.Match, and patterns without a slash are
//     also tried against the last path element
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
