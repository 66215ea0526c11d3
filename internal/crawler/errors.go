package crawler

import "errors"

// Configuration errors returned by New before any request is made.
var (
	// ErrInvalidSeedURL is returned when the seed URL has no scheme or host,
	// or uses a scheme other than http or https.
	ErrInvalidSeedURL = errors.New("invalid seed URL")

	// ErrInvalidPolicy is returned when a crawl policy value is out of range.
	ErrInvalidPolicy = errors.New("invalid crawl policy")
)

// Fetch errors. The driver treats all of them as "no page" and moves on.
var (
	// ErrTransport is returned for connection, TLS, timeout and redirect failures.
	ErrTransport = errors.New("transport failure")

	// ErrHTTPStatus is returned when the server answers with status 400 or above.
	ErrHTTPStatus = errors.New("unsuccessful HTTP status")

	// ErrUndecodable is returned when the body is not text. Invalid bytes in
	// a text body are replaced, not rejected.
	ErrUndecodable = errors.New("undecodable response body")
)
