package crawler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/schemacrawl/internal/model"
)

// State is the lifecycle state of a Spider.
type State int32

const (
	// StateReady means the Spider has been created but not started.
	StateReady State = iota
	// StateRunning means the crawl loop is fetching pages.
	StateRunning
	// StateDraining means the loop has stopped and resources are being released.
	StateDraining
	// StateDone is terminal. It is entered exactly once.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Stats counts what one crawl did.
type Stats struct {
	// Visited is the number of URLs claimed for fetching.
	Visited int
	// Emitted is the number of pages yielded to the consumer.
	Emitted int
	// Failed is the number of fetch attempts that produced no page.
	Failed int
	// Queued is the number of URLs accepted by the frontier, seed included.
	Queued int
	// RobotsBlocked is the number of URLs rejected by robots.txt.
	RobotsBlocked int
}

// Spider crawls one website breadth-first from a seed URL.
//
// A Spider owns its frontier, HTTP client and pacer. It is single-use:
// Pages may be ranged over once, and later calls yield nothing.
type Spider struct {
	seed     *url.URL
	seedURL  string
	policy   Policy
	scope    *Scope
	frontier *Frontier
	fetcher  *Fetcher
	pacer    *Pacer
	client   *http.Client
	robots   *Robots
	logger   *slog.Logger

	// transport overrides the default connection pool when set.
	transport http.RoundTripper

	started atomic.Bool
	state   atomic.Int32

	mu    sync.Mutex
	stats Stats
	err   error
}

// Option configures a Spider.
type Option func(*Spider)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTransport replaces the HTTP round tripper. Policy headers, cookie,
// timeout and redirect settings still apply.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Spider) {
		s.transport = rt
	}
}

// New creates a Spider for seedURL.
//
// The seed must be an absolute http or https URL. Errors wrap
// ErrInvalidSeedURL or ErrInvalidPolicy; no request is made before Pages
// is ranged over.
func New(seedURL string, policy Policy, opts ...Option) (*Spider, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	seed, err := url.Parse(strings.TrimSpace(seedURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeedURL, err)
	}
	if seed.Scheme == "" || seed.Host == "" {
		return nil, fmt.Errorf("%w: %q must include scheme and host", ErrInvalidSeedURL, seedURL)
	}
	if scheme := strings.ToLower(seed.Scheme); scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSeedURL, seed.Scheme)
	}

	s := &Spider{
		seed:     seed,
		seedURL:  normalizeURL(seed),
		policy:   policy,
		scope:    NewScope(seed.Host, policy.IgnorePatterns, policy.FollowPatterns),
		frontier: NewFrontier(policy.MaxDepth),
		pacer:    NewPacer(policy.Delay),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	client, err := newHTTPClient(policy, s.transport)
	if err != nil {
		return nil, err
	}
	s.client = client
	s.fetcher = NewFetcher(client, policy.UserAgent, policy.MaxBodySize)

	return s, nil
}

// SeedURL returns the canonical seed URL.
func (s *Spider) SeedURL() string {
	return s.seedURL
}

// Host returns the host the crawl is restricted to.
func (s *Spider) Host() string {
	return s.scope.Host()
}

// State returns the current lifecycle state.
func (s *Spider) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the crawl counters.
func (s *Spider) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Err returns the error that stopped the crawl early, if any.
// Failed fetches are not errors; cancellation of the context is.
func (s *Spider) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pages returns the lazy sequence of pages discovered from the seed.
//
// Each iteration fetches at most one page. Breaking out of the range loop
// stops the crawl before the next fetch. The HTTP client's idle
// connections are closed on every exit path.
func (s *Spider) Pages(ctx context.Context) iter.Seq[*model.Page] {
	return func(yield func(*model.Page) bool) {
		if !s.started.CompareAndSwap(false, true) {
			return
		}
		s.state.Store(int32(StateRunning))
		defer s.finish()

		s.run(ctx, yield)
	}
}

// finish releases the connection pool and enters StateDone.
func (s *Spider) finish() {
	s.state.Store(int32(StateDraining))
	s.client.CloseIdleConnections()
	s.state.Store(int32(StateDone))

	stats := s.Stats()
	s.logger.Debug("crawl finished",
		"seed", s.seedURL,
		"visited", stats.Visited,
		"emitted", stats.Emitted,
		"failed", stats.Failed)
}

// run is the traversal loop.
func (s *Spider) run(ctx context.Context, yield func(*model.Page) bool) {
	if s.policy.RespectRobotsTxt {
		s.robots = fetchRobots(ctx, s.client, s.seed, s.policy.UserAgent, s.logger)
	}

	if !s.push(s.seedURL, 0) {
		s.logger.Warn("seed URL is excluded from the crawl", "url", s.seedURL)
		return
	}

	for s.frontier.VisitedCount() < s.policy.MaxPages {
		if err := ctx.Err(); err != nil {
			s.setErr(err)
			return
		}

		target, ok := s.frontier.Claim()
		if !ok {
			return
		}
		s.update(func(st *Stats) { st.Visited++ })

		if err := s.pacer.Wait(ctx); err != nil {
			s.setErr(err)
			return
		}

		page, links, err := s.visit(ctx, target)
		s.pacer.Done()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.setErr(ctxErr)
				return
			}
			s.update(func(st *Stats) { st.Failed++ })
			s.logFetchError(target, err)
			continue
		}

		s.update(func(st *Stats) { st.Emitted++ })
		if !yield(page) {
			return
		}

		if target.Depth < s.policy.MaxDepth {
			for _, link := range links {
				s.push(link, target.Depth+1)
			}
		}
	}
}

// visit fetches one target and returns its page and in-scope links.
// Links are only extracted when the target may still be expanded.
func (s *Spider) visit(ctx context.Context, target Target) (*model.Page, []string, error) {
	result, err := s.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		return nil, nil, err
	}

	page := &model.Page{
		URL:         target.URL,
		FinalURL:    result.FinalURL,
		Title:       target.URL,
		Content:     result.Content,
		StatusCode:  result.StatusCode,
		ContentType: result.ContentType,
		Depth:       target.Depth,
		Truncated:   result.Truncated,
		FetchedAt:   time.Now(),
	}
	if page.Truncated {
		s.logger.Warn("page body cut at size limit", "url", target.URL, "limit", s.policy.MaxBodySize)
	}
	if !page.IsHTML() {
		return page, nil, nil
	}

	parser, err := NewParser(result.FinalURL, s.scope)
	if err != nil {
		return page, nil, nil //nolint:nilerr // unparseable pages have no links
	}
	parsed, err := parser.Parse(strings.NewReader(result.Content))
	if err != nil {
		s.logger.Debug("failed to parse page", "url", target.URL, "error", err)
		return page, nil, nil
	}
	if parsed.Title != "" {
		page.Title = parsed.Title
	}

	if target.Depth >= s.policy.MaxDepth {
		return page, nil, nil
	}
	return page, parsed.InternalLinks, nil
}

// push adds a canonical URL to the frontier after the robots check.
func (s *Spider) push(link string, depth int) bool {
	if !s.robots.Allowed(link) {
		s.update(func(st *Stats) { st.RobotsBlocked++ })
		s.logger.Debug("disallowed by robots.txt", "url", link)
		return false
	}
	if !s.frontier.Push(link, depth) {
		return false
	}
	s.update(func(st *Stats) { st.Queued++ })
	return true
}

func (s *Spider) logFetchError(target Target, err error) {
	if errors.Is(err, ErrTransport) {
		s.logger.Warn("failed to fetch page", "url", target.URL, "depth", target.Depth, "error", err)
		return
	}
	s.logger.Debug("skipping page", "url", target.URL, "depth", target.Depth, "error", err)
}

func (s *Spider) update(fn func(*Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.stats)
}

func (s *Spider) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
