package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Scope decides whether a canonical URL belongs to the crawl.
//
// A URL is in scope when its scheme is http or https and its host,
// including any port, equals the seed host. Subdomains are different
// hosts. Optional path patterns narrow the scope further.
type Scope struct {
	// host is the lowercased seed host.
	host string

	// ignorePatterns are URL path patterns to skip.
	// Patterns use glob syntax (e.g., "/admin/*", "*.pdf").
	ignorePatterns []string

	// followPatterns restrict crawling to matching paths when non-empty.
	followPatterns []string
}

// NewScope creates a Scope for the given seed host.
func NewScope(host string, ignorePatterns, followPatterns []string) *Scope {
	return &Scope{
		host:           strings.ToLower(host),
		ignorePatterns: ignorePatterns,
		followPatterns: followPatterns,
	}
}

// Host returns the allowed host.
func (s *Scope) Host() string {
	return s.host
}

// InScope reports whether the URL may be enqueued.
// Unparseable URLs are out of scope.
func (s *Scope) InScope(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return s.inScopeURL(u)
}

func (s *Scope) inScopeURL(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	if !strings.EqualFold(u.Host, s.host) {
		return false
	}
	return s.allowedPath(u.Path)
}

// allowedPath applies ignore and follow patterns to a URL path.
//
//  1. If the path matches any ignore pattern, it is rejected
//  2. If follow patterns are set and the path matches none, it is rejected
//  3. Otherwise it is allowed
func (s *Scope) allowedPath(path string) bool {
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) == 0 {
		return true
	}
	for _, pattern := range s.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - "/prefix/*" to match the prefix itself and everything below it
//   - "*.ext" to match a file extension anywhere in the path
//   - * and ? with filepath.Match semantics otherwise
//
// Examples:
//   - "/admin/*" matches "/admin", "/admin/users/edit"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*."); ok {
		if strings.HasSuffix(path, "."+ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	return matched
}
