package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffLen is how many bytes are inspected to detect the charset.
const sniffLen = 1024

// FetchResult is a successfully fetched and decoded response.
type FetchResult struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects.
	FinalURL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// ContentType is the Content-Type header of the final response.
	ContentType string

	// Content is the body decoded to UTF-8.
	Content string

	// Truncated reports whether the body was cut at the size limit.
	Truncated bool
}

// Fetcher performs single GET requests and decodes the body to text.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// NewFetcher creates a Fetcher using client for all requests.
func NewFetcher(client *http.Client, userAgent string, maxBodySize int64) *Fetcher {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &Fetcher{
		client:      client,
		userAgent:   userAgent,
		maxBodySize: maxBodySize,
	}
}

// Fetch retrieves target once. Errors wrap ErrTransport, ErrHTTPStatus or
// ErrUndecodable. Nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, sniffLen)) //nolint:errcheck
		return nil, fmt.Errorf("%w: %s returned %d", ErrHTTPStatus, target, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextContentType(contentType) {
		return nil, fmt.Errorf("%w: %s has content type %q", ErrUndecodable, target, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrTransport, target, err)
	}
	truncated := int64(len(body)) > f.maxBodySize
	if truncated {
		body = body[:f.maxBodySize]
	}

	content, err := decodeBody(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodable, target, err)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &FetchResult{
		URL:         target,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Content:     content,
		Truncated:   truncated,
	}, nil
}

// isTextContentType reports whether a Content-Type carries text.
// A missing header is treated as HTML.
func isTextContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/xhtml+xml",
		mediaType == "application/xml",
		mediaType == "application/ld+json",
		mediaType == "application/json":
		return true
	case strings.HasSuffix(mediaType, "+xml"):
		return true
	default:
		return false
	}
}

// decodeBody converts body to UTF-8 using the declared or sniffed charset.
// Decoding is lenient: invalid UTF-8 becomes U+FFFD and single-byte
// charsets map every byte.
func decodeBody(body []byte, contentType string) (string, error) {
	sniff := body
	if len(sniff) > sniffLen {
		sniff = sniff[:sniffLen]
	}

	enc, name, _ := charset.DetermineEncoding(sniff, contentType)
	if name == "utf-8" {
		return string(bytes.ToValidUTF8(body, []byte(string(utf8.RuneError)))), nil
	}

	// A byte order mark overrides the declared charset.
	decoded, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), body)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", name, err)
	}
	return string(decoded), nil
}
