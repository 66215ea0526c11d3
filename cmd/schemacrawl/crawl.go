package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nao1215/schemacrawl/internal/annotation"
	"github.com/nao1215/schemacrawl/internal/config"
	"github.com/nao1215/schemacrawl/internal/database"
	"github.com/nao1215/schemacrawl/internal/model"
	"github.com/nao1215/schemacrawl/internal/pipeline"
	"github.com/nao1215/schemacrawl/internal/report"
	"github.com/nao1215/schemacrawl/internal/schemaorg"
	"github.com/nao1215/schemacrawl/internal/secret"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// vocabularyTimeout bounds the download of the schema.org vocabulary.
const vocabularyTimeout = 2 * time.Minute

// errCrawlFailed is returned when at least one site of a batch failed.
var errCrawlFailed = errors.New("crawl failed")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl websites and collect their schema.org annotations",
		Long: `Crawl fetches every page reachable from each seed URL on the same host,
breadth-first, and for every HTML page:
- extracts the embedded schema.org JSON-LD annotations
- generates an annotation with an AI model when the page has none
- validates each annotation against the schema.org vocabulary
- stores it under <output-dir>/<host>/<path>/schema.json

Each URL given is an independent crawl. Several crawls run concurrently.

Examples:
  # Crawl one site with the defaults
  schemacrawl crawl https://example.com/

  # Crawl deeper, faster, and store YAML
  schemacrawl crawl -d 5 --delay 200ms -f yaml https://example.com/

  # Embedded annotations only, Markdown summary written to a file
  schemacrawl crawl --ai-provider none -m -r report.md https://example.com/

  # Crawl several sites, three at a time
  schemacrawl crawl -b 3 https://a.example https://b.example https://c.example

Environment variables (overridden by flags):
  MAX_PAGES, MAX_DEPTH, DELAY_BETWEEN_REQUESTS, TIMEOUT, USER_AGENT,
  OUTPUT_DIR, PARALLEL_WORKERS, AI_PROVIDER, AI_MODEL, OPENAI_API_KEY,
  OPENAI_BASE_URL`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of fetch attempts per site")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum number of link hops from the seed URL")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Pause between two requests to the same site")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout of each HTTP request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Bool("no-robots", false,
		"Ignore robots.txt")
	cmd.Flags().Bool("no-redirects", false,
		"Do not follow HTTP redirects")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites crawled concurrently")

	// Storage flags
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Root directory of stored annotations")
	cmd.Flags().StringP("format", "f", config.OutputFormatJSON,
		"File format of stored annotations (json or yaml)")
	cmd.Flags().Bool("valid-only", false,
		"Store only annotations that pass validation")
	cmd.Flags().Bool("no-history", false,
		"Do not record the crawl in the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	// AI flags
	cmd.Flags().String("ai-provider", config.DefaultAIProvider,
		"Annotation generator for pages without JSON-LD (openai or none)")
	cmd.Flags().String("ai-model", config.DefaultAIModel,
		"Model used to generate annotations")

	// Vocabulary flags
	cmd.Flags().String("vocabulary-url", config.DefaultVocabularyURL,
		"Location of the schema.org vocabulary")
	cmd.Flags().String("vocabulary-cache", "",
		"Cached copy of the vocabulary (default: XDG cache directory)")
	cmd.Flags().Bool("refresh-vocabulary", false,
		"Download the vocabulary even if a cached copy exists")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report", "r", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-progress", false,
		"Hide the progress indicator")

	return cmd
}

// crawlOptions are the per-invocation settings that are not part of Config.
type crawlOptions struct {
	stdout            io.Writer
	stderr            io.Writer
	logger            *slog.Logger
	refreshVocabulary bool
	progress          bool
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args, os.LookupEnv)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	resolveAPIKey(cfg, secret.NewKeyStore(secret.Service))

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	refresh, err := cmd.Flags().GetBool("refresh-vocabulary")
	if err != nil {
		return err
	}
	noProgress, err := cmd.Flags().GetBool("no-progress")
	if err != nil {
		return err
	}

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, crawlOptions{
		stdout:            cmd.OutOrStdout(),
		stderr:            cmd.ErrOrStderr(),
		logger:            logger,
		refreshVocabulary: refresh,
		progress:          !noProgress && !cfg.Verbose,
	})
}

// buildConfig layers defaults, the config file, the environment and the
// flags the user set, in that order.
func buildConfig(cmd *cobra.Command, args []string, lookupEnv func(string) (string, bool)) (*config.Config, error) {
	cfg, err := loadConfig(cmd, lookupEnv)
	if err != nil {
		return nil, err
	}

	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Targets = args
	return cfg, nil
}

// applyCrawlFlags copies the explicitly set flags onto cfg.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	ints := map[string]*int{
		"max-pages": &cfg.MaxPages,
		"depth":     &cfg.MaxDepth,
		"batch":     &cfg.BatchSize,
	}
	for name, dst := range ints {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	durations := map[string]*time.Duration{
		"delay":   &cfg.Delay,
		"timeout": &cfg.Timeout,
	}
	for name, dst := range durations {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	strs := map[string]*string{
		"user-agent":       &cfg.UserAgent,
		"proxy":            &cfg.Proxy,
		"output-dir":       &cfg.OutputDir,
		"format":           &cfg.OutputFormat,
		"db-dir":           &cfg.DBDir,
		"ai-provider":      &cfg.AIProvider,
		"ai-model":         &cfg.AIModel,
		"vocabulary-url":   &cfg.VocabularyURL,
		"vocabulary-cache": &cfg.VocabularyCacheFile,
		"report":           &cfg.ReportFile,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.AIProvider = strings.ToLower(cfg.AIProvider)

	// Negated flags turn a setting off only when given.
	negated := map[string]*bool{
		"no-robots":    &cfg.RespectRobotsTxt,
		"no-redirects": &cfg.FollowRedirects,
		"no-history":   &cfg.SaveToDB,
	}
	for name, dst := range negated {
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		if v {
			*dst = false
		}
	}

	bools := map[string]*bool{
		"valid-only": &cfg.ValidOnly,
		"json":       &cfg.JSONReport,
		"markdown":   &cfg.MarkdownReport,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	return nil
}

// secretLookup reads a stored secret, returning "" when it is unavailable.
type secretLookup interface {
	Lookup(name string) string
}

// resolveAPIKey falls back to the keyring when AI generation is requested
// but no API key came from the environment.
func resolveAPIKey(cfg *config.Config, keys secretLookup) {
	if cfg.AIProvider != config.AIProviderOpenAI || cfg.OpenAIAPIKey != "" {
		return
	}
	cfg.OpenAIAPIKey = keys.Lookup(secret.OpenAIAPIKey)
}

// runCrawl crawls every target and writes the report.
// The report is written even when the crawl was cancelled.
func runCrawl(ctx context.Context, cfg *config.Config, opts crawlOptions) error {
	logger := opts.logger

	components, closeFn, err := buildComponents(ctx, cfg, logger, opts.refreshVocabulary)
	if err != nil {
		return err
	}
	defer closeFn()

	runnerOpts := []pipeline.RunnerOption{
		pipeline.WithRunnerLogger(logger),
		pipeline.WithHistory(components.DB),
	}

	var bar *progressbar.ProgressBar
	if opts.progress {
		bar = newProgressBar(opts.stderr)
		runnerOpts = append(runnerOpts, pipeline.WithPageCallback(func(*model.PageResult) {
			_ = bar.Add(1) //nolint:errcheck // progress output is best effort
		}))
	}

	runner := pipeline.NewRunner(cfg, func() *pipeline.Pipeline {
		return pipeline.DefaultPipeline(components, pipeline.WithLogger(logger))
	}, runnerOpts...)

	logger.Info("starting crawl",
		"targets", cfg.Targets,
		"batch_size", cfg.BatchSize,
		"ai_enabled", cfg.AIEnabled(),
		"save_to_db", components.DB != nil,
	)

	var summaries []*model.CrawlSummary
	var crawlErr error
	if len(cfg.Targets) == 1 {
		summary, err := runner.Run(ctx, cfg.Targets[0])
		summaries, crawlErr = []*model.CrawlSummary{summary}, err
	} else {
		batch := pipeline.NewBatchRunner(runner,
			pipeline.WithConcurrency(cfg.BatchSize),
			pipeline.WithBatchLogger(logger),
		)
		summaries, crawlErr = batch.Run(ctx, cfg.Targets)
	}

	if bar != nil {
		_ = bar.Finish() //nolint:errcheck // progress output is best effort
	}

	if err := outputReport(cfg, summaries, opts.stdout); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if crawlErr != nil {
		return crawlErr
	}
	return failedCrawls(summaries)
}

// buildComponents wires the extractor, validator, store and history
// database from cfg. The returned function releases them.
func buildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger, refresh bool) (pipeline.Components, func(), error) {
	components := pipeline.Components{ValidOnly: cfg.ValidOnly}

	var generator annotation.Extractor
	if cfg.AIEnabled() {
		generator = annotation.NewAIExtractor(cfg.OpenAIAPIKey,
			annotation.WithModel(cfg.AIModel),
			annotation.WithBaseURL(cfg.AIBaseURL),
			annotation.WithRequestsPerMinute(cfg.AIRequestsPerMinute),
			annotation.WithMaxContentBytes(cfg.AIMaxContentBytes),
			annotation.WithAILogger(logger),
		)
	} else if cfg.AIProvider == config.AIProviderOpenAI {
		logger.Warn("no OpenAI API key found; only embedded annotations are collected",
			"hint", "set "+config.EnvOpenAIAPIKey+" or run 'schemacrawl auth set'")
	}
	components.Extractor = annotation.NewFallbackExtractor(
		annotation.NewEmbeddedExtractor(logger), generator, logger,
	)

	vocab, err := schemaorg.LoadVocabulary(ctx, cfg.VocabularyCacheFile, cfg.VocabularyURL,
		schemaorg.WithHTTPClient(&http.Client{Timeout: vocabularyTimeout}),
		schemaorg.WithRefresh(refresh),
		schemaorg.WithLogger(logger),
	)
	if err != nil {
		logger.Warn("schema.org vocabulary unavailable; only structural checks are applied",
			"error", err)
	}
	components.Validator = schemaorg.NewValidator(vocab)

	store, err := annotation.NewFileStore(cfg.OutputDir, cfg.OutputFormat)
	if err != nil {
		return components, nil, err
	}
	components.Store = store

	closeFn := func() {}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return components, nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug("database opened", "path", db.Path())
		components.DB = db
		closeFn = func() {
			if err := db.Close(); err != nil {
				logger.Warn("failed to close database", "error", err)
			}
		}
	}

	return components, closeFn, nil
}

// newProgressBar creates a spinner counting processed pages.
func newProgressBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("crawling"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
}

// newReportWriter returns the writer for the requested report format.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// outputReport writes the crawl summaries in the requested format.
// With a report file, a JSON or Markdown report goes to the file and the
// text summary still goes to stdout.
func outputReport(cfg *config.Config, summaries []*model.CrawlSummary, stdout io.Writer) error {
	if cfg.ReportFile == "" {
		_, err := newReportWriter(cfg, stdout).WriteAll(summaries)
		return err
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	writers := []report.Writer{newReportWriter(cfg, f)}
	if cfg.JSONReport || cfg.MarkdownReport {
		writers = append(writers, report.NewSimpleWriter(stdout))
	}
	_, err = report.NewMultiWriter(writers...).WriteAll(summaries)
	return err
}

// failedCrawls returns an error naming how many sites failed, or nil.
func failedCrawls(summaries []*model.CrawlSummary) error {
	var failed []string
	for _, s := range summaries {
		if s != nil && s.Failed() {
			failed = append(failed, s.SeedURL)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d sites: %s",
		errCrawlFailed, len(failed), len(summaries), strings.Join(failed, ", "))
}
