package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Page is the result of one successful fetch.
// The crawler emits a Page to its consumer and keeps no reference to it
// afterwards.
type Page struct {
	// URL is the canonical URL the crawler claimed for this fetch.
	// It is the deduplication key and never changes after a redirect.
	URL string `json:"url"`

	// FinalURL is the URL of the response after redirects.
	// Equal to URL when no redirect happened.
	FinalURL string `json:"final_url"`

	// Title is the trimmed text of the first <title> element, or URL when
	// the page has none. Cosmetic only.
	Title string `json:"title"`

	// Content is the decoded response body as UTF-8 text.
	Content string `json:"-"`

	// StatusCode is the HTTP status of the final response.
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type header of the final response.
	ContentType string `json:"content_type"`

	// Depth is the number of link hops from the seed URL.
	Depth int `json:"depth"`

	// Truncated reports that the body was cut at the size limit, so
	// annotations and links near the end may be missing.
	Truncated bool `json:"truncated,omitempty"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// IsHTML reports whether the content type indicates an HTML document.
// An empty content type is treated as HTML because many servers omit it.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(p.ContentType)
	return ct == "" ||
		strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}

// Size returns the length of the decoded content in bytes.
func (p *Page) Size() int {
	return len(p.Content)
}

// Hash returns the hex SHA-256 of the content, or "" for empty content.
// The history database uses it to tell whether a page changed between runs.
func (p *Page) Hash() string {
	if p.Content == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.Content))
	return hex.EncodeToString(sum[:])
}
