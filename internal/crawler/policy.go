package crawler

import (
	"fmt"
	"time"
)

// Default policy values.
const (
	DefaultMaxPages    = 100
	DefaultMaxDepth    = 3
	DefaultDelay       = 1 * time.Second
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "schemacrawl/1.0 (+https://github.com/nao1215/schemacrawl)"
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// Policy bounds and shapes one crawl. It is read-only while the crawl runs.
type Policy struct {
	// MaxPages is the maximum number of fetch attempts, failed ones included.
	MaxPages int

	// MaxDepth is the maximum number of link hops from the seed.
	// 0 means only the seed is fetched.
	MaxDepth int

	// Delay is the minimum time between the end of one fetch and the start
	// of the next. 0 disables pacing.
	Delay time.Duration

	// Timeout bounds each request, including redirects and reading the body.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// FollowRedirects makes the client follow up to 10 redirects. When false,
	// the 3xx response itself is the fetch result.
	FollowRedirects bool

	// RespectRobotsTxt makes the crawl honor the site's robots.txt.
	RespectRobotsTxt bool

	// MaxBodySize limits how many bytes of a response body are read.
	MaxBodySize int64

	// IgnorePatterns are URL path patterns excluded from the crawl.
	IgnorePatterns []string

	// FollowPatterns, when non-empty, restrict the crawl to matching paths.
	FollowPatterns []string

	// Headers are added to every request.
	Headers map[string]string

	// Cookie is a raw cookie string added to every request.
	Cookie string

	// Proxy is an optional SOCKS5 proxy address in host:port form.
	Proxy string
}

// DefaultPolicy returns a Policy with default values.
func DefaultPolicy() Policy {
	return Policy{
		MaxPages:         DefaultMaxPages,
		MaxDepth:         DefaultMaxDepth,
		Delay:            DefaultDelay,
		Timeout:          DefaultTimeout,
		UserAgent:        DefaultUserAgent,
		FollowRedirects:  true,
		RespectRobotsTxt: true,
		MaxBodySize:      DefaultMaxBodySize,
	}
}

// Validate checks the policy values.
func (p Policy) Validate() error {
	if p.MaxPages <= 0 {
		return fmt.Errorf("%w: max pages must be positive, got %d", ErrInvalidPolicy, p.MaxPages)
	}
	if p.MaxDepth < 0 {
		return fmt.Errorf("%w: max depth must not be negative, got %d", ErrInvalidPolicy, p.MaxDepth)
	}
	if p.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative, got %s", ErrInvalidPolicy, p.Delay)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidPolicy, p.Timeout)
	}
	if p.MaxBodySize <= 0 {
		return fmt.Errorf("%w: max body size must be positive, got %d", ErrInvalidPolicy, p.MaxBodySize)
	}
	return nil
}
