package crawler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// maxRedirects is the number of redirects followed before giving up.
const maxRedirects = 10

// newHTTPClient builds the HTTP client owned by one crawl.
// base is used as the round tripper when non-nil, mainly by tests.
func newHTTPClient(policy Policy, base http.RoundTripper) (*http.Client, error) {
	if base == nil {
		transport, err := newTransport(policy)
		if err != nil {
			return nil, err
		}
		base = transport
	}

	if policy.Cookie != "" || len(policy.Headers) > 0 {
		base = &headerInjectingTransport{
			base:    base,
			cookie:  policy.Cookie,
			headers: policy.Headers,
		}
	}

	return &http.Client{
		Transport:     base,
		Timeout:       policy.Timeout,
		CheckRedirect: redirectPolicy(policy.FollowRedirects),
	}, nil
}

// newTransport creates a connection pool capped per host.
func newTransport(policy Policy) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		MaxConnsPerHost:       8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: policy.Timeout,
	}

	if policy.Proxy != "" {
		dialer, err := proxy.SOCKS5("tcp", policy.Proxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("%w: SOCKS5 proxy %q: %w", ErrInvalidPolicy, policy.Proxy, err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("%w: SOCKS5 proxy %q does not support contexts", ErrInvalidPolicy, policy.Proxy)
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return contextDialer.DialContext(ctx, network, addr)
		}
	}

	return transport, nil
}

// redirectPolicy returns the CheckRedirect function for the client.
// When follow is false the first 3xx response is returned as is.
func redirectPolicy(follow bool) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if !follow {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}

// CloseIdleConnections forwards to the wrapped transport.
func (t *headerInjectingTransport) CloseIdleConnections() {
	if closer, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}
