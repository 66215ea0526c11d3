package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/schemacrawl/internal/model"
)

// BatchRunner crawls several sites concurrently.
//
// Each site is an independent crawl with its own frontier and pacing, so
// running them in parallel never increases the request rate against any
// single site.
type BatchRunner struct {
	runner      *Runner
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Default is 5 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchRunner creates a BatchRunner around runner.
func NewBatchRunner(runner *Runner, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		runner:      runner,
		concurrency: 5,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Run crawls every seed and returns the summaries in seed order.
// A failing seed is recorded in its summary and does not stop the others.
// The error is non-nil only when ctx was cancelled; seeds that never
// started then have a nil summary.
func (b *BatchRunner) Run(ctx context.Context, seeds []string) ([]*model.CrawlSummary, error) {
	summaries := make([]*model.CrawlSummary, len(seeds))
	err := b.RunWithCallback(ctx, seeds, func(summary *model.CrawlSummary, index int) {
		summaries[index] = summary
	})
	return summaries, err
}

// RunWithCallback crawls every seed and calls callback as each crawl
// finishes. callback runs on the crawl's goroutine and must be safe for
// concurrent use.
func (b *BatchRunner) RunWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(summary *model.CrawlSummary, index int),
) error {
	b.logger.Info("starting batch crawl",
		"total_sites", len(seeds),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			summary, err := b.runner.Run(ctx, seed)
			if err != nil {
				b.logger.Warn("crawl ended with error", "seed", seed, "error", err)
			}
			callback(summary, i)

			// Only cancellation stops the batch; the summary carries
			// any other failure.
			return ctx.Err()
		})
	}

	err := g.Wait()

	b.logger.Info("batch crawl complete",
		"total_sites", len(seeds),
		"elapsed", time.Since(startTime),
	)
	return err
}
