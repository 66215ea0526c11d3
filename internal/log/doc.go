// Package log provides slog loggers that mask secrets before they are written.
//
// Crawls may carry cookies, custom headers and AI provider keys. The
// SecureHandler masks:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - API keys, tokens and passwords, by key name or by value pattern
//   - passwords and secret query parameters of URLs, keeping the rest
//   - OpenAI keys quoted inside error messages
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Warn("request failed",
//	    "url", "https://example.com/",   // kept
//	    "cookie", "session=abc123",      // masked
//	)
package log
