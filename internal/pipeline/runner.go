package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/schemacrawl/internal/config"
	"github.com/nao1215/schemacrawl/internal/crawler"
	"github.com/nao1215/schemacrawl/internal/database"
	"github.com/nao1215/schemacrawl/internal/model"
)

// Runner crawls one site and runs a fresh pipeline over every page.
type Runner struct {
	cfg         *config.Config
	newPipeline func() *Pipeline
	db          *database.CrawlDB
	transport   http.RoundTripper
	logger      *slog.Logger
	onPage      func(*model.PageResult)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger of the runner and its crawlers.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHistory records every run in db.
func WithHistory(db *database.CrawlDB) RunnerOption {
	return func(r *Runner) {
		r.db = db
	}
}

// WithRunnerTransport sets the HTTP transport used by the crawlers.
func WithRunnerTransport(rt http.RoundTripper) RunnerOption {
	return func(r *Runner) {
		r.transport = rt
	}
}

// WithPageCallback calls fn after each page went through the pipeline.
// fn may be called from several goroutines when a BatchRunner is used.
func WithPageCallback(fn func(*model.PageResult)) RunnerOption {
	return func(r *Runner) {
		r.onPage = fn
	}
}

// NewRunner creates a Runner. newPipeline is called once per crawl.
func NewRunner(cfg *config.Config, newPipeline func() *Pipeline, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:         cfg,
		newPipeline: newPipeline,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run crawls seed and returns the summary of the run.
//
// An invalid seed or policy fails before any request and is returned
// together with a summary carrying the error. When ctx is cancelled the
// pages processed so far are kept, the summary is marked cancelled and the
// context error is returned.
func (r *Runner) Run(ctx context.Context, seed string) (*model.CrawlSummary, error) {
	policy := PolicyFromConfig(r.cfg, hostOf(seed))

	spiderOpts := []crawler.Option{crawler.WithLogger(r.logger)}
	if r.transport != nil {
		spiderOpts = append(spiderOpts, crawler.WithTransport(r.transport))
	}

	spider, err := crawler.New(seed, policy, spiderOpts...)
	if err != nil {
		summary := model.NewCrawlSummary(seed, "")
		summary.FinishedAt = summary.StartedAt
		summary.Error = err.Error()
		return summary, err
	}

	summary := model.NewCrawlSummary(spider.SeedURL(), spider.Host())
	logger := r.logger.With("host", spider.Host())

	if r.db != nil {
		runID, err := r.db.StartRun(ctx, summary.SeedURL, summary.Host, summary.StartedAt)
		if err != nil {
			logger.Warn("failed to record crawl run", "error", err)
		} else {
			summary.RunID = runID
		}
	}

	logger.Info("starting crawl",
		"seed", summary.SeedURL,
		"max_pages", policy.MaxPages,
		"max_depth", policy.MaxDepth,
		"run_id", summary.RunID,
	)

	p := r.newPipeline()
	for page := range spider.Pages(ctx) {
		result := model.NewPageResult(page)
		result.RunID = summary.RunID

		if err := p.Execute(ctx, result); err != nil && ctx.Err() == nil {
			logger.Warn("page processing failed", "url", page.URL, "error", err)
		}

		summary.AddPage(result)
		if r.onPage != nil {
			r.onPage(result)
		}
	}

	stats := spider.Stats()
	summary.PagesVisited = stats.Visited
	summary.PagesFailed = stats.Failed
	summary.FinishedAt = time.Now()

	crawlErr := spider.Err()
	if crawlErr != nil {
		summary.Cancelled = true
	}

	if r.db != nil && summary.RunID != "" {
		if err := r.db.FinishRun(context.WithoutCancel(ctx), summary); err != nil {
			logger.Warn("failed to finish crawl run", "error", err)
		}
	}

	logger.Info("crawl finished",
		"visited", summary.PagesVisited,
		"emitted", summary.PagesEmitted,
		"failed", summary.PagesFailed,
		"robots_blocked", stats.RobotsBlocked,
		"annotations", summary.AnnotationsFound,
		"duration", summary.Duration(),
	)

	return summary, crawlErr
}

// PolicyFromConfig builds the crawl policy for host from the global
// settings and the host's site overrides.
func PolicyFromConfig(cfg *config.Config, host string) crawler.Policy {
	policy := crawler.Policy{
		MaxPages:         cfg.MaxPages,
		MaxDepth:         cfg.MaxDepth,
		Delay:            cfg.Delay,
		Timeout:          cfg.Timeout,
		UserAgent:        cfg.UserAgent,
		FollowRedirects:  cfg.FollowRedirects,
		RespectRobotsTxt: cfg.RespectRobotsTxt,
		MaxBodySize:      cfg.MaxBodySize,
		Proxy:            cfg.Proxy,
	}

	site := cfg.Site(host)
	if site.Depth != nil {
		policy.MaxDepth = *site.Depth
	}
	if site.MaxPages > 0 {
		policy.MaxPages = site.MaxPages
	}
	if site.Delay != nil {
		policy.Delay = *site.Delay
	}
	policy.Cookie = site.Cookie
	policy.Headers = site.Headers
	policy.IgnorePatterns = site.IgnorePatterns
	policy.FollowPatterns = site.FollowPatterns

	return policy
}

// hostOf returns the host[:port] of a seed for site lookups, or "" when the
// seed cannot be parsed.
func hostOf(seed string) string {
	u, err := url.Parse(strings.TrimSpace(seed))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
